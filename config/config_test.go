package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Crawl.MaxPages != 10 || cfg.Crawl.Timeout != 10*time.Second || cfg.Crawl.Delay != 500*time.Millisecond {
		t.Fatalf("unexpected crawl defaults: %#v", cfg.Crawl)
	}
	if cfg.Limits.EmbedInput != 5000 || cfg.Limits.PayloadContent != 2000 || cfg.Limits.PageContent != 10000 {
		t.Fatalf("unexpected limits: %#v", cfg.Limits)
	}
	if cfg.Chat.TopK != 3 {
		t.Fatalf("expected top_k 3, got %d", cfg.Chat.TopK)
	}
	if cfg.Vector.Collection != "website_content" || cfg.Vector.Backend != VectorBackendQdrant {
		t.Fatalf("unexpected vector defaults: %#v", cfg.Vector)
	}
	if cfg.LLM.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected llm model %q", cfg.LLM.Model)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `{
		"crawl": {"max_pages": 4, "delay": "0s", "extractor": "Readability"},
		"vector": {"backend": "pgvector"},
		"limits": {"page_content": 800}
	}`)
	t.Setenv("SITECHAT_CRAWL_MAX_PAGES", "25")
	t.Setenv("SITECHAT_CHAT_TOP_K", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Crawl.MaxPages != 25 {
		t.Fatalf("expected env override to win, got %d", cfg.Crawl.MaxPages)
	}
	if cfg.Crawl.Delay != 0 {
		t.Fatalf("expected zero delay to be kept, got %s", cfg.Crawl.Delay)
	}
	if cfg.Crawl.Extractor != ExtractorReadability {
		t.Fatalf("expected extractor to be normalised, got %q", cfg.Crawl.Extractor)
	}
	if cfg.Chat.TopK != 5 {
		t.Fatalf("expected top_k 5, got %d", cfg.Chat.TopK)
	}
	if cfg.Vector.Backend != VectorBackendPGVector {
		t.Fatalf("unexpected backend %q", cfg.Vector.Backend)
	}
	if cfg.Limits.PageContent != 800 || cfg.Limits.EmbedInput != 5000 {
		t.Fatalf("unexpected limits: %#v", cfg.Limits)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	if _, err := Load(writeConfig(t, `{"vector": {"backend": "faiss"}}`)); err == nil {
		t.Fatalf("expected error for unsupported backend")
	}
	if _, err := Load(writeConfig(t, `{"embedding": {"provider": "openai"}}`)); err == nil {
		t.Fatalf("expected error for openai embedding without api key")
	}
}

func TestCrawlConfigValidate(t *testing.T) {
	cfg := CrawlConfig{Renderer: "phantom"}.Normalize()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected renderer error")
	}
	cfg = CrawlConfig{Delay: -time.Second}.Normalize()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative delay error")
	}
	if err := (CrawlConfig{}).Normalize().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestVectorCloudMode(t *testing.T) {
	if (VectorConfig{URL: "https://x.qdrant.io"}).CloudMode() {
		t.Fatalf("cloud mode requires an api key")
	}
	if !(VectorConfig{URL: "https://x.qdrant.io", APIKey: "k"}).CloudMode() {
		t.Fatalf("expected cloud mode")
	}
}
