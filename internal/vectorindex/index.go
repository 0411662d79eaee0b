package vectorindex

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/sitechat/config"
	"github.com/mohammad-safakhou/sitechat/internal/embedding"
	"github.com/mohammad-safakhou/sitechat/internal/helpers"
)

// Document is a stored page ready for indexing.
type Document struct {
	SiteID  int64
	PageID  int64
	URL     string
	Title   string
	Content string
}

// Result is one similarity hit.
type Result struct {
	PageID  int64   `json:"page_id"`
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

type Index struct {
	backend    Backend
	embedder   embedding.Embedder
	collection string
	limits     config.LimitsConfig
	logger     *log.Logger
}

func New(backend Backend, embedder embedding.Embedder, collection string, limits config.LimitsConfig, logger *log.Logger) *Index {
	if logger == nil {
		logger = log.New(os.Stdout, "[INDEX] ", log.LstdFlags)
	}
	return &Index{
		backend:    backend,
		embedder:   embedder,
		collection: collection,
		limits:     limits.Normalize(),
		logger:     logger,
	}
}

// EnsureCollection creates the collection on first use. Safe to call repeatedly.
func (i *Index) EnsureCollection(ctx context.Context) error {
	if err := i.backend.EnsureCollection(ctx, i.collection, i.embedder.Dimensions()); err != nil {
		return fmt.Errorf("ensure collection %s: %w", i.collection, err)
	}
	return nil
}

// Embed truncates text to the embed input limit before embedding.
func (i *Index) Embed(ctx context.Context, text string) ([]float32, error) {
	return i.embedder.Embed(ctx, helpers.Truncate(text, i.limits.EmbedInput))
}

// AddPage embeds doc and stores it under a fresh vector id.
func (i *Index) AddPage(ctx context.Context, doc Document) (string, error) {
	vec, err := i.Embed(ctx, doc.Content)
	if err != nil {
		return "", fmt.Errorf("embed page %d: %w", doc.PageID, err)
	}
	id := uuid.NewString()
	point := Point{
		ID:     id,
		Vector: vec,
		Payload: Payload{
			SiteID:        doc.SiteID,
			PageID:        doc.PageID,
			URL:           doc.URL,
			Title:         doc.Title,
			Content:       helpers.Truncate(doc.Content, i.limits.PayloadContent),
			ContentLength: helpers.CharCount(doc.Content),
		},
	}
	if err := i.backend.Upsert(ctx, i.collection, point); err != nil {
		return "", fmt.Errorf("upsert page %d: %w", doc.PageID, err)
	}
	return id, nil
}

// Search returns up to k hits ordered by score. Failures are logged and
// yield an empty result.
func (i *Index) Search(ctx context.Context, siteID int64, query string, k int) []Result {
	if k <= 0 {
		return []Result{}
	}
	vec, err := i.Embed(ctx, query)
	if err != nil {
		i.logger.Printf("warn: embed query: %v", err)
		return []Result{}
	}
	hits, err := i.backend.Search(ctx, i.collection, vec, siteID, k)
	if err != nil {
		i.logger.Printf("warn: search %s: %v", i.collection, err)
		return []Result{}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, Result{
			PageID:  h.PageID,
			URL:     h.URL,
			Title:   h.Title,
			Content: h.Content,
			Score:   h.Score,
		})
	}
	return out
}

func (i *Index) DeleteByPage(ctx context.Context, pageID int64) {
	if err := i.backend.DeleteByPage(ctx, i.collection, pageID); err != nil {
		i.logger.Printf("warn: delete vectors for page %d: %v", pageID, err)
	}
}

func (i *Index) DeleteBySite(ctx context.Context, siteID int64) {
	if err := i.backend.DeleteBySite(ctx, i.collection, siteID); err != nil {
		i.logger.Printf("warn: delete vectors for site %d: %v", siteID, err)
	}
}

func (i *Index) Close() error {
	return i.backend.Close()
}
