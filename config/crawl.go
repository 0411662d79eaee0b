package config

import (
	"fmt"
	"strings"
	"time"
)

// DefaultUserAgent is a desktop Chrome string; some sites refuse obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const (
	RendererHTTP     = "http"
	RendererChromedp = "chromedp"

	ExtractorSelector    = "selector"
	ExtractorReadability = "readability"
)

// CrawlConfig controls page fetching and sitemap traversal.
type CrawlConfig struct {
	UserAgent       string        `mapstructure:"user_agent" json:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout" json:"timeout"`
	Delay           time.Duration `mapstructure:"delay" json:"delay"`
	MaxPages        int           `mapstructure:"max_pages" json:"max_pages"`
	MaxSitemapDepth int           `mapstructure:"max_sitemap_depth" json:"max_sitemap_depth"`
	MaxRetries      int           `mapstructure:"max_retries" json:"max_retries"`
	RespectRobots   bool          `mapstructure:"respect_robots" json:"respect_robots"`
	Renderer        string        `mapstructure:"renderer" json:"renderer"`
	Extractor       string        `mapstructure:"extractor" json:"extractor"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" json:"max_body_bytes"`
}

// Normalize fills unset values. A zero delay is kept since it is a valid choice.
func (c CrawlConfig) Normalize() CrawlConfig {
	norm := c
	norm.UserAgent = strings.TrimSpace(norm.UserAgent)
	if norm.UserAgent == "" {
		norm.UserAgent = DefaultUserAgent
	}
	if norm.Timeout <= 0 {
		norm.Timeout = 10 * time.Second
	}
	if norm.MaxPages <= 0 {
		norm.MaxPages = 10
	}
	if norm.MaxSitemapDepth <= 0 {
		norm.MaxSitemapDepth = 5
	}
	norm.Renderer = strings.ToLower(strings.TrimSpace(norm.Renderer))
	if norm.Renderer == "" {
		norm.Renderer = RendererHTTP
	}
	norm.Extractor = strings.ToLower(strings.TrimSpace(norm.Extractor))
	if norm.Extractor == "" {
		norm.Extractor = ExtractorSelector
	}
	if norm.MaxBodyBytes <= 0 {
		norm.MaxBodyBytes = 5 << 20
	}
	return norm
}

func (c CrawlConfig) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("crawl.delay cannot be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("crawl.max_retries cannot be negative")
	}
	switch c.Renderer {
	case RendererHTTP, RendererChromedp:
	default:
		return fmt.Errorf("crawl.renderer %q not supported", c.Renderer)
	}
	switch c.Extractor {
	case ExtractorSelector, ExtractorReadability:
	default:
		return fmt.Errorf("crawl.extractor %q not supported", c.Extractor)
	}
	return nil
}
