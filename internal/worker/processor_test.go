package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammad-safakhou/sitechat/internal/ingest"
	"github.com/mohammad-safakhou/sitechat/internal/metrics"
	"github.com/mohammad-safakhou/sitechat/internal/queue/streams"
	"github.com/mohammad-safakhou/sitechat/internal/store"
)

type fakeClaims struct {
	mu    sync.Mutex
	seen  map[string]bool
	sites map[int64]store.SiteStatus
	err   error
}

func (f *fakeClaims) GetSite(_ context.Context, id int64) (store.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.sites[id]
	if !ok {
		return store.Site{}, store.ErrNotFound
	}
	return store.Site{ID: id, Status: status}, nil
}

func (f *fakeClaims) ClaimEvent(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.seen[id] {
		return false, nil
	}
	f.seen[id] = true
	return true, nil
}

type fakeIngester struct {
	mu    sync.Mutex
	sites []int64
}

func (f *fakeIngester) Ingest(_ context.Context, siteID int64) ingest.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sites = append(f.sites, siteID)
	return ingest.Outcome{Status: ingest.StatusSuccess, SiteID: siteID, PagesScraped: 2}
}

func (f *fakeIngester) calls() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.sites...)
}

type fakeSource struct {
	mu      sync.Mutex
	batches [][]streams.Message
	pending []streams.Message
	acked   []string
	lag     streams.LagMetrics
	lagErr  error
}

func (f *fakeSource) Lag(context.Context, string) (streams.LagMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lag, f.lagErr
}

func (f *fakeSource) Read(ctx context.Context, _ string, _ ...streams.ConsumerOption) ([]streams.Message, error) {
	f.mu.Lock()
	if len(f.batches) > 0 {
		b := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return b, nil
	}
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	}
}

func (f *fakeSource) AutoClaim(context.Context, string, time.Duration, string, int64) ([]streams.Message, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.pending
	f.pending = nil
	return msgs, "0-0", nil
}

func (f *fakeSource) Ack(_ context.Context, _ string, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return nil
}

func (f *fakeSource) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

func scrapeMessage(t *testing.T, entryID, eventID string, siteID int64) streams.Message {
	t.Helper()
	data, err := json.Marshal(streams.ScrapeRequest{SiteID: siteID, URL: "https://example.com/", RequestedAt: time.Now().UTC(), Source: streams.SourceAPI})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return streams.Message{ID: entryID, Envelope: streams.Envelope{
		EventID:        eventID,
		EventType:      streams.EventScrapeRequested,
		PayloadVersion: streams.VersionV1,
		Data:           data,
	}}
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func TestProcessorIngestsAndAcks(t *testing.T) {
	src := &fakeSource{
		pending: []streams.Message{scrapeMessage(t, "1-0", "evt-old", 9)},
		batches: [][]streams.Message{{
			scrapeMessage(t, "2-0", "evt-a", 1),
			scrapeMessage(t, "3-0", "evt-a", 1),
			scrapeMessage(t, "4-0", "evt-b", 2),
		}},
	}
	ing := &fakeIngester{}
	proc := NewProcessor(quiet(), &fakeClaims{seen: map[string]bool{}}, ing, src, "sitechat:jobs:scrape", 10*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- proc.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(src.ackedIDs()) < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start: %v", err)
	}

	sites := ing.calls()
	if len(sites) != 3 || sites[0] != 9 || sites[1] != 1 || sites[2] != 2 {
		t.Fatalf("expected sites [9 1 2] with the duplicate skipped, got %v", sites)
	}
	if got := src.ackedIDs(); len(got) != 4 {
		t.Fatalf("expected every entry acked, got %v", got)
	}
}

func TestHandleClaimErrorLeavesPending(t *testing.T) {
	src := &fakeSource{}
	ing := &fakeIngester{}
	proc := NewProcessor(quiet(), &fakeClaims{err: errors.New("db down")}, ing, src, "s", time.Millisecond, 1)

	proc.handleAll(context.Background(), []streams.Message{scrapeMessage(t, "1-0", "evt", 1)}, false)
	if len(src.ackedIDs()) != 0 {
		t.Fatalf("unclaimed entry must not be acked")
	}
	if len(ing.calls()) != 0 {
		t.Fatalf("ingest must not run without a claim")
	}
}

func TestHandleSkipsForeignEvents(t *testing.T) {
	ing := &fakeIngester{}
	proc := NewProcessor(quiet(), &fakeClaims{seen: map[string]bool{}}, ing, &fakeSource{}, "s", time.Millisecond, 1)
	msg := streams.Message{ID: "1-0", Envelope: streams.Envelope{EventID: "e", EventType: "site.deleted", PayloadVersion: "v1", Data: json.RawMessage(`{}`)}}
	if err := proc.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(ing.calls()) != 0 {
		t.Fatalf("foreign event must not trigger ingest")
	}
}

func TestReclaimedEntryResumesStrandedSite(t *testing.T) {
	cases := []struct {
		name       string
		status     store.SiteStatus
		wantIngest int
	}{
		{"still scraping", store.SiteStatusScraping, 1},
		{"already complete", store.SiteStatusComplete, 0},
		{"already failed", store.SiteStatusFailed, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims := &fakeClaims{seen: map[string]bool{"evt-1": true}, sites: map[int64]store.SiteStatus{7: tc.status}}
			src := &fakeSource{}
			ing := &fakeIngester{}
			proc := NewProcessor(quiet(), claims, ing, src, "s", time.Millisecond, 1)

			proc.handleAll(context.Background(), []streams.Message{scrapeMessage(t, "1-0", "evt-1", 7)}, true)
			if got := ing.calls(); len(got) != tc.wantIngest {
				t.Fatalf("expected %d ingest calls, got %v", tc.wantIngest, got)
			}
			if got := src.ackedIDs(); len(got) != 1 || got[0] != "1-0" {
				t.Fatalf("expected entry acked, got %v", got)
			}
		})
	}
}

func TestFreshDuplicateSkipsScrapingSite(t *testing.T) {
	claims := &fakeClaims{seen: map[string]bool{"evt-1": true}, sites: map[int64]store.SiteStatus{7: store.SiteStatusScraping}}
	src := &fakeSource{}
	ing := &fakeIngester{}
	proc := NewProcessor(quiet(), claims, ing, src, "s", time.Millisecond, 1)

	proc.handleAll(context.Background(), []streams.Message{scrapeMessage(t, "2-0", "evt-1", 7)}, false)
	if len(ing.calls()) != 0 {
		t.Fatalf("a duplicate read from the stream must not start a second crawl")
	}
	if len(src.ackedIDs()) != 1 {
		t.Fatalf("duplicate should be acked")
	}
}

func TestReportLagSetsGauges(t *testing.T) {
	src := &fakeSource{lag: streams.LagMetrics{Pending: 3, Lag: 5, Consumers: 2, OldestIdle: 90 * time.Second}}
	proc := NewProcessor(quiet(), &fakeClaims{seen: map[string]bool{}}, &fakeIngester{}, src, "lag-stream", time.Millisecond, 1)

	proc.ReportLag(context.Background())
	if got := testutil.ToFloat64(metrics.QueuePending.WithLabelValues("lag-stream")); got != 3 {
		t.Fatalf("pending gauge = %v", got)
	}
	if got := testutil.ToFloat64(metrics.QueueLag.WithLabelValues("lag-stream")); got != 5 {
		t.Fatalf("lag gauge = %v", got)
	}
	if got := testutil.ToFloat64(metrics.QueueOldestPending.WithLabelValues("lag-stream")); got != 90 {
		t.Fatalf("oldest pending gauge = %v", got)
	}

	src.mu.Lock()
	src.lag, src.lagErr = streams.LagMetrics{}, errors.New("redis down")
	src.mu.Unlock()
	proc.ReportLag(context.Background())
	if got := testutil.ToFloat64(metrics.QueuePending.WithLabelValues("lag-stream")); got != 3 {
		t.Fatalf("gauge must keep its last value on error, got %v", got)
	}
}
