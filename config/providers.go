package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	VectorBackendQdrant   = "qdrant"
	VectorBackendPGVector = "pgvector"
	VectorBackendMemory   = "memory"

	EmbeddingProviderHash   = "hash"
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderOllama = "ollama"

	LLMProviderGemini = "gemini"
	LLMProviderOpenAI = "openai"
)

// VectorConfig selects and connects the vector index backend. For qdrant,
// URL plus APIKey targets a cloud cluster and Host/Port a local instance.
type VectorConfig struct {
	Backend    string `mapstructure:"backend"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

func (v VectorConfig) Normalize() VectorConfig {
	v.Backend = strings.ToLower(strings.TrimSpace(v.Backend))
	if v.Backend == "" {
		v.Backend = VectorBackendQdrant
	}
	v.Collection = strings.TrimSpace(v.Collection)
	if v.Collection == "" {
		v.Collection = "website_content"
	}
	if v.Port <= 0 {
		v.Port = 6334
	}
	return v
}

func (v VectorConfig) Validate() error {
	switch v.Backend {
	case VectorBackendQdrant:
		if strings.TrimSpace(v.URL) == "" && strings.TrimSpace(v.Host) == "" {
			return fmt.Errorf("vector.host required when vector.url is not provided")
		}
	case VectorBackendPGVector, VectorBackendMemory:
	default:
		return fmt.Errorf("vector.backend %q not supported", v.Backend)
	}
	return nil
}

// CloudMode reports whether the cloud URL+key pair should be used.
func (v VectorConfig) CloudMode() bool {
	return strings.TrimSpace(v.URL) != "" && strings.TrimSpace(v.APIKey) != ""
}

// EmbeddingConfig selects the text embedding provider.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
}

func (e EmbeddingConfig) Normalize() EmbeddingConfig {
	e.Provider = strings.ToLower(strings.TrimSpace(e.Provider))
	if e.Provider == "" {
		e.Provider = EmbeddingProviderHash
	}
	if e.Dimensions <= 0 {
		e.Dimensions = 384
	}
	if e.Model == "" {
		switch e.Provider {
		case EmbeddingProviderOpenAI:
			e.Model = "text-embedding-3-small"
		case EmbeddingProviderOllama:
			e.Model = "all-minilm"
		}
	}
	if e.Provider == EmbeddingProviderOllama && e.BaseURL == "" {
		e.BaseURL = "http://localhost:11434"
	}
	return e
}

func (e EmbeddingConfig) Validate() error {
	switch e.Provider {
	case EmbeddingProviderHash:
	case EmbeddingProviderOpenAI:
		if strings.TrimSpace(e.APIKey) == "" {
			return fmt.Errorf("embedding.api_key required for openai")
		}
	case EmbeddingProviderOllama:
		if strings.TrimSpace(e.BaseURL) == "" {
			return fmt.Errorf("embedding.base_url required for ollama")
		}
	default:
		return fmt.Errorf("embedding.provider %q not supported", e.Provider)
	}
	return nil
}

// LLMConfig configures the answer generation model.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Normalize() LLMConfig {
	l.Provider = strings.ToLower(strings.TrimSpace(l.Provider))
	if l.Provider == "" {
		l.Provider = LLMProviderGemini
	}
	if l.Model == "" {
		switch l.Provider {
		case LLMProviderOpenAI:
			l.Model = "gpt-4o-mini"
		default:
			l.Model = "gemini-2.5-flash"
		}
	}
	if l.Timeout <= 0 {
		l.Timeout = 60 * time.Second
	}
	return l
}

// Validate does not require an API key: a missing key surfaces as an
// apology answer at chat time rather than blocking crawls.
func (l LLMConfig) Validate() error {
	switch l.Provider {
	case LLMProviderGemini, LLMProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider %q not supported", l.Provider)
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0,2]")
	}
	return nil
}
