// Package crawler resolves a seed URL into pages and extracts their text.
package crawler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/sitechat/config"
	"github.com/mohammad-safakhou/sitechat/internal/helpers"
	"github.com/mohammad-safakhou/sitechat/internal/metrics"
)

// Page is one successfully extracted document.
type Page struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Options struct {
	MaxPages        int
	Delay           time.Duration
	MaxSitemapDepth int
	Extractor       Extractor
}

// Crawler fetches sitemaps and pages sequentially.
type Crawler struct {
	fetcher     Fetcher // sitemaps and robots.txt
	pageFetcher Fetcher
	robots      *RobotsGuard
	opts        Options
	logger      *log.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

type Option func(*Crawler)

// WithFetcher replaces the fetcher used for sitemaps, and for pages unless
// WithPageFetcher is also given.
func WithFetcher(f Fetcher) Option {
	return func(c *Crawler) {
		c.fetcher = f
		c.pageFetcher = f
	}
}

func WithPageFetcher(f Fetcher) Option {
	return func(c *Crawler) { c.pageFetcher = f }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRobots enables robots.txt checks for page fetches.
func WithRobots(g *RobotsGuard) Option {
	return func(c *Crawler) { c.robots = g }
}

// New builds a crawler from the crawl and limits configuration.
func New(cfg config.CrawlConfig, limits config.LimitsConfig, opts ...Option) *Crawler {
	cfg = cfg.Normalize()
	limits = limits.Normalize()

	client := NewHTTPClient(cfg.Timeout)
	base := &HTTPFetcher{Client: client, UserAgent: cfg.UserAgent, MaxBodyBytes: cfg.MaxBodyBytes}
	var pages Fetcher = &HTTPFetcher{Client: client, UserAgent: cfg.UserAgent, MaxBodyBytes: cfg.MaxBodyBytes, DecodeCharset: true}
	if cfg.Renderer == config.RendererChromedp {
		pages = &ChromeFetcher{UserAgent: cfg.UserAgent, Timeout: cfg.Timeout}
	}

	c := &Crawler{
		fetcher:     &RetryFetcher{Next: base, MaxRetries: cfg.MaxRetries},
		pageFetcher: &RetryFetcher{Next: pages, MaxRetries: cfg.MaxRetries},
		opts: Options{
			MaxPages:        cfg.MaxPages,
			Delay:           cfg.Delay,
			MaxSitemapDepth: cfg.MaxSitemapDepth,
			Extractor:       Extractor{Mode: cfg.Extractor, MaxChars: limits.PageContent},
		},
		logger: log.New(log.Writer(), "[CRAWLER] ", log.LstdFlags),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if cfg.RespectRobots && c.robots == nil {
		c.robots = NewRobotsGuard(c.fetcher, cfg.UserAgent, c.logger)
	}
	return c
}

// ResolveAndScrape crawls seedURL and returns the pages with content, in
// discovery order. A sitemap seed is flattened and truncated to maxPages
// (<= 0 uses the configured budget) before any page is fetched. Per-page
// failures are logged and dropped; only an invalid seed or a cancelled
// context is returned as an error.
func (c *Crawler) ResolveAndScrape(ctx context.Context, seedURL string, maxPages int) ([]Page, error) {
	if !helpers.IsHTTPURL(seedURL) {
		return nil, fmt.Errorf("invalid seed url %q", seedURL)
	}
	if maxPages <= 0 {
		maxPages = c.opts.MaxPages
	}

	pages := []Page{}
	if !IsSitemap(seedURL) {
		c.logger.Printf("scraping single page: %s", seedURL)
		if page, ok := c.scrapePage(ctx, seedURL); ok {
			pages = append(pages, page)
		}
		return pages, ctx.Err()
	}

	c.logger.Printf("detected sitemap url: %s", seedURL)
	urls := c.ResolveSitemap(ctx, seedURL)
	if err := ctx.Err(); err != nil {
		return pages, err
	}
	if len(urls) == 0 {
		c.logger.Printf("warn: no urls found in sitemap %s", seedURL)
		return pages, nil
	}
	if len(urls) > maxPages {
		urls = urls[:maxPages]
	}
	c.logger.Printf("will scrape %d pages (limited to %d)", len(urls), maxPages)

	for i, u := range urls {
		if i > 0 && c.opts.Delay > 0 {
			if err := c.sleep(ctx, c.opts.Delay); err != nil {
				return pages, err
			}
		}
		c.logger.Printf("scraping page %d/%d: %s", i+1, len(urls), u)
		if page, ok := c.scrapePage(ctx, u); ok {
			pages = append(pages, page)
		}
		if err := ctx.Err(); err != nil {
			return pages, err
		}
	}
	c.logger.Printf("total pages successfully scraped: %d", len(pages))
	return pages, nil
}

// ScrapePage fetches and extracts a single URL. A failure yields a record
// with empty content rather than an error.
func (c *Crawler) ScrapePage(ctx context.Context, pageURL string) Page {
	if c.robots != nil && !c.robots.Allowed(ctx, pageURL) {
		c.logger.Printf("warn: robots.txt disallows %s", pageURL)
		metrics.PagesFetched.WithLabelValues("disallowed").Inc()
		return Page{URL: pageURL}
	}
	resp, err := c.pageFetcher.Fetch(ctx, pageURL)
	if err != nil {
		c.logger.Printf("error scraping %s: %v", pageURL, err)
		metrics.PagesFetched.WithLabelValues("error").Inc()
		return Page{URL: pageURL}
	}
	title, content, err := c.opts.Extractor.Extract(resp.Body, pageURL)
	if err != nil {
		c.logger.Printf("error extracting %s: %v", pageURL, err)
		metrics.PagesFetched.WithLabelValues("error").Inc()
		return Page{URL: pageURL}
	}
	if content == "" {
		metrics.PagesFetched.WithLabelValues("empty").Inc()
	} else {
		metrics.PagesFetched.WithLabelValues("ok").Inc()
		c.logger.Printf("scraped: %s (%d chars)", title, helpers.CharCount(content))
	}
	return Page{URL: pageURL, Title: title, Content: content}
}

func (c *Crawler) scrapePage(ctx context.Context, pageURL string) (Page, bool) {
	page := c.ScrapePage(ctx, pageURL)
	return page, page.Content != ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
