// Package vectorindex stores page embeddings and answers similarity queries
// scoped to a site. The Index type owns text limits and failure policy; a
// Backend only moves vectors.
package vectorindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mohammad-safakhou/sitechat/config"
)

// Payload is the metadata stored next to each vector.
type Payload struct {
	SiteID        int64
	PageID        int64
	URL           string
	Title         string
	Content       string
	ContentLength int
}

type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

type Hit struct {
	Payload
	Score float32
}

// Backend is a vector store. A siteID of zero in Search means no filter.
type Backend interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	Upsert(ctx context.Context, name string, p Point) error
	Search(ctx context.Context, name string, vector []float32, siteID int64, k int) ([]Hit, error)
	DeleteByPage(ctx context.Context, name string, pageID int64) error
	DeleteBySite(ctx context.Context, name string, siteID int64) error
	Close() error
}

// ErrNoDatabase is returned when the pgvector backend is selected without a database handle.
var ErrNoDatabase = errors.New("vectorindex: pgvector backend needs a database")

// Open connects the backend selected by cfg.
func Open(cfg config.VectorConfig, db *sql.DB) (Backend, error) {
	cfg = cfg.Normalize()
	switch cfg.Backend {
	case config.VectorBackendQdrant:
		host, port, useTLS := cfg.Host, cfg.Port, cfg.UseTLS
		if cfg.CloudMode() {
			u, err := url.Parse(cfg.URL)
			if err != nil {
				return nil, fmt.Errorf("parse vector.url: %w", err)
			}
			host = u.Hostname()
			if p := u.Port(); p != "" {
				if n, err := strconv.Atoi(p); err == nil && n != 6333 {
					port = n
				}
			}
			useTLS = true
		}
		return NewQdrant(host, port, cfg.APIKey, useTLS)
	case config.VectorBackendPGVector:
		if db == nil {
			return nil, ErrNoDatabase
		}
		return NewPGVector(db), nil
	case config.VectorBackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.Backend)
	}
}
