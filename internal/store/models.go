package store

import "time"

// SiteStatus is the crawl lifecycle of a site.
type SiteStatus string

const (
	SiteStatusPending  SiteStatus = "pending"
	SiteStatusScraping SiteStatus = "scraping"
	SiteStatusComplete SiteStatus = "complete"
	SiteStatusFailed   SiteStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s SiteStatus) Valid() bool {
	switch s {
	case SiteStatusPending, SiteStatusScraping, SiteStatusComplete, SiteStatusFailed:
		return true
	}
	return false
}

type Site struct {
	ID         int64      `json:"id"`
	URL        string     `json:"url"`
	Title      *string    `json:"title"`
	TotalPages int        `json:"total_pages"`
	Status     SiteStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type Page struct {
	ID        int64     `json:"id"`
	SiteID    int64     `json:"site_id"`
	URL       string    `json:"url"`
	Title     *string   `json:"title"`
	Content   string    `json:"content"`
	VectorID  *string   `json:"vector_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatSession struct {
	ID        int64     `json:"-"`
	SiteID    int64     `json:"site_id"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID          int64     `json:"id"`
	SessionID   int64     `json:"-"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Timestamp   time.Time `json:"timestamp"`
}
