package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateSession opens a chat session for siteID with a fresh opaque token.
func (s *Store) CreateSession(ctx context.Context, siteID int64) (ChatSession, error) {
	if siteID <= 0 {
		return ChatSession{}, fmt.Errorf("site_id required")
	}
	sess := ChatSession{SiteID: siteID, SessionID: uuid.NewString()}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO chat_sessions (site_id, session_id)
VALUES ($1,$2)
RETURNING id, created_at`, siteID, sess.SessionID).Scan(&sess.ID, &sess.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ChatSession{}, fmt.Errorf("site %d: %w", siteID, ErrNotFound)
		}
		return ChatSession{}, err
	}
	return sess, nil
}

// GetSession looks a session up by its public token.
func (s *Store) GetSession(ctx context.Context, token string) (ChatSession, error) {
	if _, err := uuid.Parse(token); err != nil {
		return ChatSession{}, ErrNotFound
	}
	var sess ChatSession
	err := s.DB.QueryRowContext(ctx, `SELECT id, site_id, session_id, created_at FROM chat_sessions WHERE session_id=$1`, token).
		Scan(&sess.ID, &sess.SiteID, &sess.SessionID, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ChatSession{}, ErrNotFound
	}
	return sess, err
}

// CreateMessage stores one question/answer exchange.
func (s *Store) CreateMessage(ctx context.Context, sessionID int64, userMessage, botResponse string) (Message, error) {
	if sessionID <= 0 {
		return Message{}, fmt.Errorf("session id required")
	}
	m := Message{SessionID: sessionID, UserMessage: userMessage, BotResponse: botResponse}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO messages (session_id, user_message, bot_response)
VALUES ($1,$2,$3)
RETURNING id, created_at`, sessionID, userMessage, botResponse).Scan(&m.ID, &m.Timestamp)
	if err != nil {
		return Message{}, err
	}
	return m, nil
}

// ListMessages returns a session's messages, newest first.
func (s *Store) ListMessages(ctx context.Context, sessionID int64) ([]Message, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, session_id, user_message, bot_response, created_at
FROM messages
WHERE session_id=$1
ORDER BY created_at DESC, id DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserMessage, &m.BotResponse, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
