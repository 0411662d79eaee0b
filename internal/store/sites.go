package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const siteColumns = `id, url, title, total_pages, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (Site, error) {
	var site Site
	var status string
	if err := row.Scan(&site.ID, &site.URL, &site.Title, &site.TotalPages, &status, &site.CreatedAt, &site.UpdatedAt); err != nil {
		return Site{}, err
	}
	site.Status = SiteStatus(status)
	return site, nil
}

// CreateSite inserts a pending site. url must already be canonical.
func (s *Store) CreateSite(ctx context.Context, url string, title *string) (Site, error) {
	if strings.TrimSpace(url) == "" {
		return Site{}, fmt.Errorf("url required")
	}
	row := s.DB.QueryRowContext(ctx, `INSERT INTO sites (url, title) VALUES ($1,$2) RETURNING `+siteColumns, url, title)
	site, err := scanSite(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Site{}, fmt.Errorf("site %s: %w", url, ErrDuplicate)
		}
		return Site{}, err
	}
	return site, nil
}

func (s *Store) GetSite(ctx context.Context, id int64) (Site, error) {
	site, err := scanSite(s.DB.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Site{}, ErrNotFound
	}
	return site, err
}

func (s *Store) GetSiteByURL(ctx context.Context, url string) (Site, error) {
	site, err := scanSite(s.DB.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE url=$1`, url))
	if errors.Is(err, sql.ErrNoRows) {
		return Site{}, ErrNotFound
	}
	return site, err
}

// ListSites returns sites newest first. With statuses given, only those match.
func (s *Store) ListSites(ctx context.Context, statuses ...SiteStatus) ([]Site, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.DB.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY created_at DESC, id DESC`)
	} else {
		vals := make([]string, len(statuses))
		for i, st := range statuses {
			vals[i] = string(st)
		}
		rows, err = s.DB.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE status = ANY($1) ORDER BY created_at DESC, id DESC`, pq.Array(vals))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Site{}
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, site)
	}
	return out, rows.Err()
}

// DeleteSite removes the site; pages, sessions and messages cascade.
func (s *Store) DeleteSite(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM sites WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ClaimScraping atomically moves a site into scraping unless it already is.
// It returns ErrAlreadyScraping when another crawl holds the site and
// ErrNotFound when the id is unknown.
func (s *Store) ClaimScraping(ctx context.Context, id int64) (Site, error) {
	site, err := scanSite(s.DB.QueryRowContext(ctx, `
UPDATE sites SET status=$2, updated_at=NOW()
WHERE id=$1 AND status <> $2
RETURNING `+siteColumns, id, string(SiteStatusScraping)))
	if err == nil {
		return site, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Site{}, err
	}
	var exists bool
	if err := s.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sites WHERE id=$1)`, id).Scan(&exists); err != nil {
		return Site{}, err
	}
	if exists {
		return Site{}, ErrAlreadyScraping
	}
	return Site{}, ErrNotFound
}

// SetSiteStatus overwrites the status and bumps updated_at.
func (s *Store) SetSiteStatus(ctx context.Context, id int64, status SiteStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE sites SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// CompleteSite records a finished crawl with the number of pages fetched.
func (s *Store) CompleteSite(ctx context.Context, id int64, totalPages int) error {
	if totalPages < 0 {
		return fmt.Errorf("total_pages cannot be negative")
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE sites SET status=$2, total_pages=$3, updated_at=NOW() WHERE id=$1`,
		id, string(SiteStatusComplete), totalPages)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
