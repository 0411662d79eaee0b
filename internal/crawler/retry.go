package crawler

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryFetcher retries transient failures of Next with exponential backoff.
// MaxRetries counts attempts after the first one.
type RetryFetcher struct {
	Next            Fetcher
	MaxRetries      int
	InitialInterval time.Duration
}

func (r *RetryFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if r.MaxRetries <= 0 {
		return r.Next.Fetch(ctx, rawURL)
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.InitialInterval
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = 500 * time.Millisecond
	}
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.MaxRetries)), ctx)

	var resp *Response
	op := func() error {
		var err error
		resp, err = r.Next.Fetch(ctx, rawURL)
		if err != nil && isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return resp, nil
}
