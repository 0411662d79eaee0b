package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ClaimEvent registers a processed queue event. It returns false if the event
// was claimed before.
func (s *Store) ClaimEvent(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, fmt.Errorf("event_id required")
	}
	var inserted bool
	err := s.DB.QueryRowContext(ctx, `INSERT INTO processed_events (event_id) VALUES ($1) ON CONFLICT DO NOTHING RETURNING true`, eventID).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return inserted, nil
}
