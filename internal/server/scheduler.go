package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/sitechat/internal/queue/streams"
	"github.com/mohammad-safakhou/sitechat/internal/store"
)

const recrawlLockPrefix = "sitechat:lock:recrawl"

// RecrawlStore is the slice of the store the scheduler needs.
type RecrawlStore interface {
	ListSites(ctx context.Context, statuses ...store.SiteStatus) ([]store.Site, error)
	ClaimScraping(ctx context.Context, id int64) (store.Site, error)
	SetSiteStatus(ctx context.Context, id int64, status store.SiteStatus) error
}

// Locker is satisfied by *redis.Client.
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Scheduler re-crawls finished sites on a cron schedule. Only one process
// per run time wins the redis lock.
type Scheduler struct {
	Store  RecrawlStore
	Jobs   JobEnqueuer
	Locker Locker
	Logger *log.Logger

	expr *cronexpr.Expression
	now  func() time.Time
}

func NewScheduler(cronSpec string, st RecrawlStore, jobs JobEnqueuer, locker Locker, logger *log.Logger) (*Scheduler, error) {
	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		return nil, fmt.Errorf("parse recrawl cron %q: %w", cronSpec, err)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	return &Scheduler{Store: st, Jobs: jobs, Locker: locker, Logger: logger, expr: expr, now: time.Now}, nil
}

// Next returns the first run strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.expr.Next(t)
}

// Start runs the schedule until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		for {
			next := s.expr.Next(s.now())
			if next.IsZero() {
				s.Logger.Printf("warn: recrawl schedule has no future runs")
				return
			}
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			n, err := s.RunOnce(ctx, next)
			if err != nil {
				s.Logger.Printf("warn: recrawl at %s: %v", next.Format(time.RFC3339), err)
				continue
			}
			s.Logger.Printf("recrawl at %s queued %d sites", next.Format(time.RFC3339), n)
		}
	}()
}

// RunOnce queues every complete or failed site for the run at `at` and
// returns how many were queued. A lost lock race queues nothing.
func (s *Scheduler) RunOnce(ctx context.Context, at time.Time) (int, error) {
	if s.Locker != nil {
		key := fmt.Sprintf("%s:%d", recrawlLockPrefix, at.Unix())
		ok, err := s.Locker.SetNX(ctx, key, "1", 10*time.Minute).Result()
		if err != nil {
			return 0, fmt.Errorf("take lock: %w", err)
		}
		if !ok {
			return 0, nil
		}
	}
	sites, err := s.Store.ListSites(ctx, store.SiteStatusComplete, store.SiteStatusFailed)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, site := range sites {
		claimed, err := s.Store.ClaimScraping(ctx, site.ID)
		if err != nil {
			if !errors.Is(err, store.ErrAlreadyScraping) && !errors.Is(err, store.ErrNotFound) {
				s.Logger.Printf("warn: claim site %d: %v", site.ID, err)
			}
			continue
		}
		if _, err := s.Jobs.EnqueueScrape(ctx, claimed.ID, claimed.URL, streams.SourceScheduler); err != nil {
			s.Logger.Printf("warn: enqueue site %d: %v", claimed.ID, err)
			if err := s.Store.SetSiteStatus(ctx, claimed.ID, store.SiteStatusFailed); err != nil {
				s.Logger.Printf("warn: mark site %d failed: %v", claimed.ID, err)
			}
			continue
		}
		queued++
	}
	return queued, nil
}
