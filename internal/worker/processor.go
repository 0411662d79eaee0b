package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/sitechat/internal/ingest"
	"github.com/mohammad-safakhou/sitechat/internal/metrics"
	"github.com/mohammad-safakhou/sitechat/internal/queue/streams"
	"github.com/mohammad-safakhou/sitechat/internal/store"
)

const (
	pendingMinIdle = 10 * time.Minute
	readRetryDelay = time.Second
	lagInterval    = 15 * time.Second
)

// EventStore records processed event ids and reports site state for
// redelivered events.
type EventStore interface {
	ClaimEvent(ctx context.Context, eventID string) (bool, error)
	GetSite(ctx context.Context, id int64) (store.Site, error)
}

type Ingester interface {
	Ingest(ctx context.Context, siteID int64) ingest.Outcome
}

// Source is the stream consumer surface the processor uses.
type Source interface {
	Read(ctx context.Context, stream string, opts ...streams.ConsumerOption) ([]streams.Message, error)
	AutoClaim(ctx context.Context, stream string, minIdle time.Duration, start string, count int64) ([]streams.Message, string, error)
	Ack(ctx context.Context, stream string, ids ...string) error
	Lag(ctx context.Context, stream string) (streams.LagMetrics, error)
}

// Processor consumes site.scrape.requested events one at a time.
type Processor struct {
	logger   *log.Logger
	claims   EventStore
	ingester Ingester
	source   Source
	stream   string
	block    time.Duration
	count    int64
}

func NewProcessor(logger *log.Logger, claims EventStore, ingester Ingester, source Source, stream string, block time.Duration, count int64) *Processor {
	if count <= 0 {
		count = 1
	}
	return &Processor{
		logger:   logger,
		claims:   claims,
		ingester: ingester,
		source:   source,
		stream:   stream,
		block:    block,
		count:    count,
	}
}

// Start blocks until ctx is cancelled. Entries left pending by a crashed
// worker are reclaimed first.
func (p *Processor) Start(ctx context.Context) error {
	p.logger.Printf("worker processor starting; consuming stream %s", p.stream)
	if err := p.resumePending(ctx); err != nil {
		p.logger.Printf("warn: reclaim pending entries failed: %v", err)
	}
	p.ReportLag(ctx)
	lastLag := time.Now()

	for {
		select {
		case <-ctx.Done():
			p.logger.Printf("worker processor stopping: %v", ctx.Err())
			return nil
		default:
		}

		msgs, err := p.source.Read(ctx, p.stream, streams.WithBlock(p.block), streams.WithCount(p.count))
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Printf("error reading stream: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(readRetryDelay):
			}
			continue
		}
		p.handleAll(ctx, msgs, false)
		if time.Since(lastLag) >= lagInterval {
			p.ReportLag(ctx)
			lastLag = time.Now()
		}
	}
}

// ReportLag publishes the consumer group backlog to the queue gauges.
func (p *Processor) ReportLag(ctx context.Context) {
	lag, err := p.source.Lag(ctx, p.stream)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Printf("warn: read group lag: %v", err)
		}
		return
	}
	metrics.QueuePending.WithLabelValues(p.stream).Set(float64(lag.Pending))
	metrics.QueueLag.WithLabelValues(p.stream).Set(float64(lag.Lag))
	metrics.QueueOldestPending.WithLabelValues(p.stream).Set(lag.OldestIdle.Seconds())
}

func (p *Processor) resumePending(ctx context.Context) error {
	start := "0-0"
	for {
		msgs, next, err := p.source.AutoClaim(ctx, p.stream, pendingMinIdle, start, p.count)
		if err != nil {
			return err
		}
		if len(msgs) > 0 {
			p.logger.Printf("reclaimed %d pending entries", len(msgs))
		}
		p.handleAll(ctx, msgs, true)
		if next == "" || next == "0-0" || next == start {
			return nil
		}
		start = next
	}
}

func (p *Processor) handleAll(ctx context.Context, msgs []streams.Message, reclaimed bool) {
	for _, msg := range msgs {
		if err := p.handle(ctx, msg, reclaimed); err != nil {
			p.logger.Printf("error handling message %s: %v", msg.ID, err)
			// Unclaimed events stay pending for a later AutoClaim.
			continue
		}
		if err := p.source.Ack(ctx, p.stream, msg.ID); err != nil {
			p.logger.Printf("warn: failed to ack message %s: %v", msg.ID, err)
		}
	}
}

// Handle processes one freshly delivered message. An error means the event
// was not claimed and should be retried.
func (p *Processor) Handle(ctx context.Context, msg streams.Message) error {
	return p.handle(ctx, msg, false)
}

// handle also resumes a reclaimed entry whose event was claimed by a worker
// that died before the site left scraping.
func (p *Processor) handle(ctx context.Context, msg streams.Message, reclaimed bool) error {
	if msg.Envelope.EventType != streams.EventScrapeRequested {
		p.logger.Printf("skip event %s of type %s", msg.Envelope.EventID, msg.Envelope.EventType)
		return nil
	}
	var req streams.ScrapeRequest
	if err := msg.Envelope.Decode(&req); err != nil {
		p.logger.Printf("skip event %s: %v", msg.Envelope.EventID, err)
		return nil
	}

	claimed, err := p.claims.ClaimEvent(ctx, msg.Envelope.EventID)
	if err != nil {
		return fmt.Errorf("claim event: %w", err)
	}
	if !claimed {
		if !reclaimed {
			p.logger.Printf("skip event %s: already processed", msg.Envelope.EventID)
			return nil
		}
		site, err := p.claims.GetSite(ctx, req.SiteID)
		if errors.Is(err, store.ErrNotFound) {
			p.logger.Printf("skip event %s: site %d is gone", msg.Envelope.EventID, req.SiteID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load site %d: %w", req.SiteID, err)
		}
		if site.Status != store.SiteStatusScraping {
			p.logger.Printf("skip event %s: already processed", msg.Envelope.EventID)
			return nil
		}
		p.logger.Printf("resuming event %s: site %d still scraping", msg.Envelope.EventID, req.SiteID)
	}

	started := time.Now()
	out := p.ingester.Ingest(ctx, req.SiteID)
	if out.Status == ingest.StatusSuccess {
		p.logger.Printf("site %d ingested: %d pages in %s (source %s)", req.SiteID, out.PagesScraped, time.Since(started).Round(time.Millisecond), req.Source)
	} else {
		p.logger.Printf("site %d ingest failed: %s", req.SiteID, out.Message)
	}
	return nil
}
