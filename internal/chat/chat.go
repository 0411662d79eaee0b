// Package chat answers questions about a crawled site: it retrieves the most
// similar pages, asks the generator for an answer grounded in them and
// records the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mohammad-safakhou/sitechat/config"
	"github.com/mohammad-safakhou/sitechat/internal/helpers"
	"github.com/mohammad-safakhou/sitechat/internal/metrics"
	"github.com/mohammad-safakhou/sitechat/internal/store"
	"github.com/mohammad-safakhou/sitechat/internal/vectorindex"
)

// NoResultsMessage is the answer when retrieval finds nothing for the site.
const NoResultsMessage = "I couldn't find any relevant information about that on this website. Try rephrasing your question, or scrape the site again if it has new pages."

const contextSeparator = "\n\n---\n\n"

var (
	ErrEmptyMessage    = errors.New("message required")
	ErrSessionNotFound = errors.New("session not found")
	ErrSiteNotFound    = errors.New("site not found")
	ErrSessionRequired = errors.New("session_id or site_id required")
)

type SessionStore interface {
	GetSite(ctx context.Context, id int64) (store.Site, error)
	CreateSession(ctx context.Context, siteID int64) (store.ChatSession, error)
	GetSession(ctx context.Context, token string) (store.ChatSession, error)
	CreateMessage(ctx context.Context, sessionID int64, userMessage, botResponse string) (store.Message, error)
}

type Searcher interface {
	Search(ctx context.Context, siteID int64, query string, k int) []vectorindex.Result
}

type Generator interface {
	Generate(ctx context.Context, question, contextText string) string
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	SiteID    int64  `json:"site_id"`
	Message   string `json:"message"`
}

// Source is a retrieved page shown alongside the answer.
type Source struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

type Result struct {
	SessionID   string   `json:"session_id"`
	UserMessage string   `json:"user_message"`
	BotResponse string   `json:"bot_response"`
	Sources     []Source `json:"sources"`
}

type Pipeline struct {
	store     SessionStore
	search    Searcher
	generator Generator
	cfg       config.ChatConfig
	logger    *log.Logger
}

func NewPipeline(s SessionStore, search Searcher, gen Generator, cfg config.ChatConfig, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(os.Stdout, "[CHAT] ", log.LstdFlags)
	}
	return &Pipeline{store: s, search: search, generator: gen, cfg: cfg.Normalize(), logger: logger}
}

// Chat runs one question/answer turn.
func (p *Pipeline) Chat(ctx context.Context, req ChatRequest) (Result, error) {
	res, err := p.chat(ctx, req)
	if err != nil {
		metrics.ChatRequests.WithLabelValues("error").Inc()
	}
	return res, err
}

func (p *Pipeline) chat(ctx context.Context, req ChatRequest) (Result, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Result{}, ErrEmptyMessage
	}
	// Markup-only input counts as empty; the stored question stays as typed.
	if strings.TrimSpace(helpers.PlainText(message)) == "" {
		return Result{}, ErrEmptyMessage
	}

	session, err := p.resolveSession(ctx, req)
	if err != nil {
		return Result{}, err
	}

	results := p.search.Search(ctx, session.SiteID, message, p.cfg.TopK)
	var answer string
	if len(results) == 0 {
		answer = NoResultsMessage
		metrics.ChatRequests.WithLabelValues("no_results").Inc()
	} else {
		answer = p.generator.Generate(ctx, message, BuildContext(results))
		metrics.ChatRequests.WithLabelValues("answered").Inc()
	}

	if _, err := p.store.CreateMessage(ctx, session.ID, message, answer); err != nil {
		return Result{}, fmt.Errorf("save message: %w", err)
	}

	return Result{
		SessionID:   session.SessionID,
		UserMessage: message,
		BotResponse: answer,
		Sources:     p.sources(results),
	}, nil
}

func (p *Pipeline) resolveSession(ctx context.Context, req ChatRequest) (store.ChatSession, error) {
	if token := strings.TrimSpace(req.SessionID); token != "" {
		sess, err := p.store.GetSession(ctx, token)
		if errors.Is(err, store.ErrNotFound) {
			return store.ChatSession{}, ErrSessionNotFound
		}
		return sess, err
	}
	if req.SiteID <= 0 {
		return store.ChatSession{}, ErrSessionRequired
	}
	if _, err := p.store.GetSite(ctx, req.SiteID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ChatSession{}, ErrSiteNotFound
		}
		return store.ChatSession{}, err
	}
	sess, err := p.store.CreateSession(ctx, req.SiteID)
	if errors.Is(err, store.ErrNotFound) {
		return store.ChatSession{}, ErrSiteNotFound
	}
	if err == nil {
		p.logger.Printf("opened session %s for site %d", sess.SessionID, req.SiteID)
	}
	return sess, err
}

// BuildContext renders retrieved pages into the prompt context block.
func BuildContext(results []vectorindex.Result) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("Title: %s\nURL: %s\nContent: %s", r.Title, r.URL, r.Content))
	}
	return strings.Join(blocks, contextSeparator)
}

func (p *Pipeline) sources(results []vectorindex.Result) []Source {
	out := make([]Source, 0, len(results))
	for _, r := range results {
		out = append(out, Source{
			URL:     r.URL,
			Title:   r.Title,
			Content: helpers.Truncate(r.Content, p.cfg.SourcePreview),
			Score:   r.Score,
		})
	}
	return out
}
