package vectorindex

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// PGVector stores embeddings in the page_embeddings table. Each row carries
// its collection name so several indexes can share one table.
type PGVector struct {
	db *sql.DB
}

func NewPGVector(db *sql.DB) *PGVector {
	return &PGVector{db: db}
}

func (p *PGVector) EnsureCollection(ctx context.Context, name string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS page_embeddings (
			id UUID PRIMARY KEY,
			collection TEXT NOT NULL,
			site_id BIGINT NOT NULL,
			page_id BIGINT NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			content_length INT NOT NULL DEFAULT 0,
			embedding vector(%d) NOT NULL
		)`, dim),
		`CREATE INDEX IF NOT EXISTS page_embeddings_site_idx ON page_embeddings (collection, site_id)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure page_embeddings for %s: %w", name, err)
		}
	}
	return nil
}

func (p *PGVector) Upsert(ctx context.Context, name string, pt Point) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO page_embeddings (id, collection, site_id, page_id, url, title, content, content_length, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, content = EXCLUDED.content`,
		pt.ID, name, pt.Payload.SiteID, pt.Payload.PageID, pt.Payload.URL, pt.Payload.Title,
		pt.Payload.Content, pt.Payload.ContentLength, pgvector.NewVector(pt.Vector),
	)
	return err
}

func (p *PGVector) Search(ctx context.Context, name string, vector []float32, siteID int64, k int) ([]Hit, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT site_id, page_id, url, title, content, content_length, 1 - (embedding <=> $1) AS score
		 FROM page_embeddings
		 WHERE collection = $2 AND ($3::bigint = 0 OR site_id = $3)
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		pgvector.NewVector(vector), name, siteID, k,
	)
	if err != nil {
		return nil, fmt.Errorf("search page_embeddings: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var score float64
		if err := rows.Scan(&h.SiteID, &h.PageID, &h.URL, &h.Title, &h.Content, &h.ContentLength, &score); err != nil {
			return nil, fmt.Errorf("scan page_embeddings: %w", err)
		}
		h.Score = float32(score)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (p *PGVector) DeleteByPage(ctx context.Context, name string, pageID int64) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM page_embeddings WHERE collection = $1 AND page_id = $2`, name, pageID)
	return err
}

func (p *PGVector) DeleteBySite(ctx context.Context, name string, siteID int64) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM page_embeddings WHERE collection = $1 AND site_id = $2`, name, siteID)
	return err
}

// Close is a no-op; the database handle belongs to the store.
func (p *PGVector) Close() error { return nil }
