// Package ingest runs one crawl-and-index pass for a site and drives the
// site through its status lifecycle.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mohammad-safakhou/sitechat/internal/crawler"
	"github.com/mohammad-safakhou/sitechat/internal/metrics"
	"github.com/mohammad-safakhou/sitechat/internal/store"
	"github.com/mohammad-safakhou/sitechat/internal/vectorindex"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	msgSiteNotFound = "site not found"
	msgNoPages      = "No pages were scraped"
)

// SiteStore is the persistence surface an ingestion run needs.
type SiteStore interface {
	GetSite(ctx context.Context, id int64) (store.Site, error)
	ClaimScraping(ctx context.Context, id int64) (store.Site, error)
	SetSiteStatus(ctx context.Context, id int64, status store.SiteStatus) error
	CompleteSite(ctx context.Context, id int64, totalPages int) error
	CreatePage(ctx context.Context, siteID int64, url string, title *string, content string) (store.Page, error)
	SetPageVectorID(ctx context.Context, pageID int64, vectorID string) error
}

type Crawler interface {
	ResolveAndScrape(ctx context.Context, seedURL string, maxPages int) ([]crawler.Page, error)
}

type Indexer interface {
	AddPage(ctx context.Context, doc vectorindex.Document) (string, error)
}

// Outcome summarises a run.
type Outcome struct {
	Status       string `json:"status"`
	SiteID       int64  `json:"site_id"`
	PagesScraped int    `json:"pages_scraped,omitempty"`
	Message      string `json:"message,omitempty"`
}

type Orchestrator struct {
	store    SiteStore
	crawler  Crawler
	index    Indexer
	maxPages int
	logger   *log.Logger
}

func New(s SiteStore, c Crawler, idx Indexer, maxPages int, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(os.Stdout, "[INGEST] ", log.LstdFlags)
	}
	return &Orchestrator{store: s, crawler: c, index: idx, maxPages: maxPages, logger: logger}
}

// Ingest crawls the site and indexes every page. It never returns an error;
// failures are reported in the Outcome and leave the site marked failed.
func (o *Orchestrator) Ingest(ctx context.Context, siteID int64) (out Outcome) {
	out = Outcome{SiteID: siteID}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("panic during ingest of site %d: %v", siteID, r)
			o.markFailed(siteID)
			out = Outcome{Status: StatusError, SiteID: siteID, Message: fmt.Sprint(r)}
		}
		metrics.IngestRuns.WithLabelValues(out.Status).Inc()
	}()

	site, err := o.store.GetSite(ctx, siteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return o.fail(out, msgSiteNotFound)
		}
		return o.failAndMark(out, err)
	}
	if _, err := o.store.ClaimScraping(ctx, siteID); err != nil && !errors.Is(err, store.ErrAlreadyScraping) {
		if errors.Is(err, store.ErrNotFound) {
			return o.fail(out, msgSiteNotFound)
		}
		return o.failAndMark(out, err)
	}

	o.logger.Printf("crawling site %d (%s)", siteID, site.URL)
	pages, err := o.crawler.ResolveAndScrape(ctx, site.URL, o.maxPages)
	if err != nil {
		return o.failAndMark(out, err)
	}
	if len(pages) == 0 {
		o.markFailed(siteID)
		return o.fail(out, msgNoPages)
	}

	for _, p := range pages {
		title := p.Title
		page, err := o.store.CreatePage(ctx, siteID, p.URL, &title, p.Content)
		if err != nil {
			return o.failAndMark(out, fmt.Errorf("save page %s: %w", p.URL, err))
		}
		vectorID, err := o.index.AddPage(ctx, vectorindex.Document{
			SiteID:  siteID,
			PageID:  page.ID,
			URL:     page.URL,
			Title:   title,
			Content: page.Content,
		})
		if err != nil {
			metrics.IndexFailures.Inc()
			o.logger.Printf("warn: index page %d (%s): %v", page.ID, page.URL, err)
			continue
		}
		if err := o.store.SetPageVectorID(ctx, page.ID, vectorID); err != nil {
			o.logger.Printf("warn: record vector id for page %d: %v", page.ID, err)
		}
	}

	if err := o.store.CompleteSite(ctx, siteID, len(pages)); err != nil {
		return o.failAndMark(out, err)
	}
	o.logger.Printf("site %d complete with %d pages", siteID, len(pages))
	out.Status = StatusSuccess
	out.PagesScraped = len(pages)
	return out
}

func (o *Orchestrator) fail(out Outcome, msg string) Outcome {
	out.Status = StatusError
	out.Message = msg
	return out
}

func (o *Orchestrator) failAndMark(out Outcome, err error) Outcome {
	o.logger.Printf("ingest of site %d failed: %v", out.SiteID, err)
	o.markFailed(out.SiteID)
	return o.fail(out, err.Error())
}

// markFailed uses its own context so a cancelled run still records the failure.
func (o *Orchestrator) markFailed(siteID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.store.SetSiteStatus(ctx, siteID, store.SiteStatusFailed); err != nil {
		o.logger.Printf("warn: mark site %d failed: %v", siteID, err)
	}
}
