package store

import (
	"context"
	"fmt"
	"strings"
)

// CreatePage persists one scraped page under siteID.
func (s *Store) CreatePage(ctx context.Context, siteID int64, url string, title *string, content string) (Page, error) {
	if siteID <= 0 {
		return Page{}, fmt.Errorf("site_id required")
	}
	if strings.TrimSpace(url) == "" {
		return Page{}, fmt.Errorf("url required")
	}
	p := Page{SiteID: siteID, URL: url, Title: title, Content: content}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO pages (site_id, url, title, content)
VALUES ($1,$2,$3,$4)
RETURNING id, created_at`, siteID, url, title, content).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Page{}, fmt.Errorf("site %d: %w", siteID, ErrNotFound)
		}
		return Page{}, err
	}
	return p, nil
}

// SetPageVectorID links a page to its entry in the vector index.
func (s *Store) SetPageVectorID(ctx context.Context, pageID int64, vectorID string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE pages SET vector_id=$2 WHERE id=$1`, pageID, vectorID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListPages returns a site's pages in crawl order.
func (s *Store) ListPages(ctx context.Context, siteID int64) ([]Page, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, site_id, url, title, content, vector_id, created_at
FROM pages
WHERE site_id=$1
ORDER BY id ASC`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Page{}
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.SiteID, &p.URL, &p.Title, &p.Content, &p.VectorID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
