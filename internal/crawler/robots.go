package crawler

import (
	"context"
	"errors"
	"log"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsGuard caches robots.txt per host and answers allow/deny per URL.
type RobotsGuard struct {
	fetcher   Fetcher
	userAgent string
	logger    *log.Logger

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

func NewRobotsGuard(fetcher Fetcher, userAgent string, logger *log.Logger) *RobotsGuard {
	if logger == nil {
		logger = log.New(log.Writer(), "[CRAWLER] ", log.LstdFlags)
	}
	return &RobotsGuard{fetcher: fetcher, userAgent: userAgent, logger: logger, groups: map[string]*robotstxt.Group{}}
}

// Allowed reports whether rawURL may be fetched. Unreachable or broken
// robots.txt files allow everything.
func (g *RobotsGuard) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	group := g.group(ctx, u)
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

func (g *RobotsGuard) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host
	g.mu.Lock()
	defer g.mu.Unlock()
	if grp, ok := g.groups[key]; ok {
		return grp
	}

	var data *robotstxt.RobotsData
	resp, err := g.fetcher.Fetch(ctx, key+"/robots.txt")
	switch {
	case err == nil:
		data, err = robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	default:
		var se *StatusError
		if errors.As(err, &se) {
			data, err = robotstxt.FromStatusAndBytes(se.Code, nil)
		}
	}
	if err != nil || data == nil {
		if err != nil {
			g.logger.Printf("warn: robots.txt for %s ignored: %v", key, err)
		}
		g.groups[key] = nil
		return nil
	}
	grp := data.FindGroup(g.userAgent)
	g.groups[key] = grp
	return grp
}
