// Package embedding converts text into fixed-length dense vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/sitechat/config"
)

// ErrEmptyInput is returned when text carries nothing to embed.
var ErrEmptyInput = errors.New("embedding: empty input")

// Embedder produces vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// New builds the configured embedder.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	cfg = cfg.Normalize()
	switch cfg.Provider {
	case config.EmbeddingProviderHash:
		return NewHash(cfg.Dimensions), nil
	case config.EmbeddingProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Dimensions), nil
	case config.EmbeddingProviderOllama:
		return NewOllama(cfg.BaseURL, cfg.Model, cfg.Dimensions, &http.Client{Timeout: 60 * time.Second}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

func checkDimensions(vec []float32, want int) error {
	if want > 0 && len(vec) != want {
		return fmt.Errorf("embedding: got %d dimensions, want %d", len(vec), want)
	}
	return nil
}
