package streams

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/sitechat/internal/metrics"
)

const (
	SourceAPI       = "api"
	SourceScheduler = "scheduler"
	SourceCLI       = "cli"
)

// ScrapeRequest is the site.scrape.requested payload.
type ScrapeRequest struct {
	SiteID      int64     `json:"site_id"`
	URL         string    `json:"url"`
	RequestedAt time.Time `json:"requested_at"`
	Source      string    `json:"source"`
}

// JobQueue publishes scrape requests onto one stream.
type JobQueue struct {
	publisher *Publisher
	stream    string
}

func NewJobQueue(publisher *Publisher, stream string) *JobQueue {
	return &JobQueue{publisher: publisher, stream: stream}
}

// EnqueueScrape publishes a request for siteID and returns its task id.
func (q *JobQueue) EnqueueScrape(ctx context.Context, siteID int64, url, source string) (string, error) {
	req := ScrapeRequest{
		SiteID:      siteID,
		URL:         url,
		RequestedAt: time.Now().UTC(),
		Source:      source,
	}
	id, err := q.publisher.PublishPayload(ctx, q.stream, EventScrapeRequested, VersionV1, req)
	if err != nil {
		return "", fmt.Errorf("enqueue scrape for site %d: %w", siteID, err)
	}
	metrics.JobsPublished.WithLabelValues(source).Inc()
	return id, nil
}
