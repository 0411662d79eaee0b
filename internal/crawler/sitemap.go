package crawler

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/mohammad-safakhou/sitechat/internal/helpers"
	"github.com/mohammad-safakhou/sitechat/internal/metrics"
)

// IsSitemap decides the traversal branch from the URL alone: a path ending
// in .xml, or "sitemap" anywhere in the path or query, case-insensitively.
func IsSitemap(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		lower := strings.ToLower(raw)
		return strings.HasSuffix(lower, ".xml") || strings.Contains(lower, "sitemap")
	}
	path := strings.ToLower(u.Path)
	return strings.HasSuffix(path, ".xml") ||
		strings.Contains(path, "sitemap") ||
		strings.Contains(strings.ToLower(u.RawQuery), "sitemap")
}

// ParseSitemap returns the <loc> values of a sitemap or sitemap index in
// document order. Only <loc> elements in the root element's namespace count.
func ParseSitemap(body []byte) ([]string, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	root := rootElement(doc)
	if root == nil {
		return nil, errors.New("sitemap has no root element")
	}
	ns := root.NamespaceURI

	var locs []string
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode {
				continue
			}
			if child.Data == "loc" && child.NamespaceURI == ns {
				if text := strings.TrimSpace(child.InnerText()); text != "" {
					locs = append(locs, text)
				}
				continue
			}
			walk(child)
		}
	}
	walk(root)
	return locs, nil
}

func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

// ResolveSitemap flattens a sitemap tree into page URLs, depth-first in
// document order. Broken, repeated or too-deep nodes contribute nothing.
func (c *Crawler) ResolveSitemap(ctx context.Context, sitemapURL string) []string {
	visited := make(map[string]struct{})
	return c.resolveSitemap(ctx, sitemapURL, 0, visited)
}

func (c *Crawler) resolveSitemap(ctx context.Context, sitemapURL string, depth int, visited map[string]struct{}) []string {
	if ctx.Err() != nil {
		return nil
	}
	key := sitemapURL
	if canonical, err := helpers.CanonicalURL(sitemapURL); err == nil {
		key = canonical
	}
	if _, seen := visited[key]; seen {
		c.logger.Printf("warn: sitemap %s already visited, skipping", sitemapURL)
		metrics.SitemapsResolved.WithLabelValues("skipped").Inc()
		return nil
	}
	visited[key] = struct{}{}
	if depth > c.opts.MaxSitemapDepth {
		c.logger.Printf("warn: sitemap %s exceeds max depth %d, skipping", sitemapURL, c.opts.MaxSitemapDepth)
		metrics.SitemapsResolved.WithLabelValues("skipped").Inc()
		return nil
	}

	resp, err := c.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		c.logger.Printf("error fetching sitemap %s: %v", sitemapURL, err)
		metrics.SitemapsResolved.WithLabelValues("error").Inc()
		return nil
	}
	locs, err := ParseSitemap(resp.Body)
	if err != nil {
		c.logger.Printf("error parsing sitemap %s: %v", sitemapURL, err)
		metrics.SitemapsResolved.WithLabelValues("error").Inc()
		return nil
	}
	metrics.SitemapsResolved.WithLabelValues("ok").Inc()

	base, _ := url.Parse(sitemapURL)
	var urls []string
	for _, loc := range locs {
		loc = absolute(base, loc)
		if IsSitemap(loc) {
			c.logger.Printf("found nested sitemap: %s", loc)
			urls = append(urls, c.resolveSitemap(ctx, loc, depth+1, visited)...)
			continue
		}
		urls = append(urls, loc)
	}
	c.logger.Printf("extracted %d urls from sitemap %s", len(urls), sitemapURL)
	return urls
}

func absolute(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return base.ResolveReference(u).String()
}
