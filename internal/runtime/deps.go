// Package runtime assembles the long-lived dependencies of sitechat
// processes from configuration.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/sitechat/config"
	"github.com/mohammad-safakhou/sitechat/internal/chat"
	"github.com/mohammad-safakhou/sitechat/internal/crawler"
	"github.com/mohammad-safakhou/sitechat/internal/embedding"
	"github.com/mohammad-safakhou/sitechat/internal/generation"
	"github.com/mohammad-safakhou/sitechat/internal/ingest"
	"github.com/mohammad-safakhou/sitechat/internal/queue/streams"
	"github.com/mohammad-safakhou/sitechat/internal/store"
	"github.com/mohammad-safakhou/sitechat/internal/vectorindex"
)

// Deps is built once per process and closed at shutdown.
type Deps struct {
	Config    *config.Config
	Store     *store.Store
	Redis     *redis.Client
	Index     *vectorindex.Index
	Generator *generation.Provider
	Crawler   *crawler.Crawler
	Ingest    *ingest.Orchestrator
	Chat      *chat.Pipeline
	Registry  *streams.SchemaRegistry
	Jobs      *streams.JobQueue

	closers []func() error
}

type buildOptions struct {
	queue bool
}

type BuildOption func(*buildOptions)

// WithoutQueue skips Redis; Redis and Jobs stay nil.
func WithoutQueue() BuildOption {
	return func(o *buildOptions) { o.queue = false }
}

// Build connects Postgres, the vector index and (unless disabled) Redis, and
// wires the ingestion and chat pipelines on top of them.
func Build(ctx context.Context, cfg *config.Config, opts ...BuildOption) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	bo := buildOptions{queue: true}
	for _, opt := range opts {
		opt(&bo)
	}

	d := &Deps{Config: cfg}
	if err := d.build(ctx, bo); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Deps) build(ctx context.Context, bo buildOptions) error {
	cfg := d.Config
	dsn, err := BuildPostgresDSN(cfg)
	if err != nil {
		return err
	}
	d.Store, err = store.NewWithDSN(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	d.closers = append(d.closers, d.Store.Close)

	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		return err
	}
	backend, err := vectorindex.Open(cfg.Vector, d.Store.DB)
	if err != nil {
		return err
	}
	d.Index = vectorindex.New(backend, emb, cfg.Vector.Collection, cfg.Limits, logger("INDEX"))
	d.closers = append(d.closers, d.Index.Close)
	if err := d.Index.EnsureCollection(ctx); err != nil {
		return err
	}

	d.Generator = generation.New(ctx, cfg.LLM, logger("LLM"))
	d.closers = append(d.closers, d.Generator.Close)

	d.Crawler = crawler.New(cfg.Crawl, cfg.Limits, crawler.WithLogger(logger("CRAWLER")))
	d.Ingest = ingest.New(d.Store, d.Crawler, d.Index, cfg.Crawl.MaxPages, logger("INGEST"))
	d.Chat = chat.NewPipeline(d.Store, d.Index, d.Generator, cfg.Chat, logger("CHAT"))

	d.Registry, err = streams.NewBaseRegistry()
	if err != nil {
		return err
	}
	if bo.queue {
		rc := cfg.Storage.Redis
		d.Redis = redis.NewClient(&redis.Options{
			Addr:        rc.Addr(),
			Password:    rc.Password,
			DB:          rc.DB,
			DialTimeout: rc.Timeout,
		})
		d.closers = append(d.closers, d.Redis.Close)
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", rc.Addr(), err)
		}
		d.Jobs = streams.NewJobQueue(streams.NewPublisher(d.Redis, d.Registry), cfg.Queue.Stream)
	}
	return nil
}

// Close releases everything Build opened, newest first.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func logger(component string) *log.Logger {
	return log.New(os.Stdout, "["+component+"] ", log.LstdFlags)
}
