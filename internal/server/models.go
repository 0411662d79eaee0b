package server

import (
	"time"

	"github.com/mohammad-safakhou/sitechat/internal/store"
)

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// CreateSiteRequest registers a website for crawling.
type CreateSiteRequest struct {
	URL   string  `json:"url"`
	Title *string `json:"title"`
}

// ScrapeResponse acknowledges a queued crawl.
type ScrapeResponse struct {
	TaskID string `json:"task_id"`
	SiteID int64  `json:"site_id"`
	Status string `json:"status"`
}

type CreateSessionRequest struct {
	SiteID int64 `json:"site_id"`
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	SiteID    int64     `json:"site_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionDetail is a session with its messages, newest first.
type SessionDetail struct {
	SessionResponse
	Messages []store.Message `json:"messages"`
}

func sessionResponse(s store.ChatSession) SessionResponse {
	return SessionResponse{SessionID: s.SessionID, SiteID: s.SiteID, CreatedAt: s.CreatedAt}
}
