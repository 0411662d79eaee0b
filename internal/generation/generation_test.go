package generation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/sitechat/config"
)

type fakeModel struct {
	prompts []string
	reply   string
	err     error
	block   bool
}

func (f *fakeModel) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func (f *fakeModel) Close() error { return nil }

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func TestGenerateBuildsPrompt(t *testing.T) {
	m := &fakeModel{reply: "The team plan costs $20."}
	p := NewProvider(m, time.Second, quiet())

	got := p.Generate(context.Background(), "How much is the team plan?", "Title: Pricing\nURL: https://x/pricing\nContent: Team $20")
	if got != "The team plan costs $20." {
		t.Fatalf("unexpected answer %q", got)
	}
	if len(m.prompts) != 1 {
		t.Fatalf("expected one call, got %d", len(m.prompts))
	}
	prompt := m.prompts[0]
	for _, want := range []string{
		"Context:\nTitle: Pricing",
		"User Question: How much is the team plan?",
		"politely say so.\n\nAnswer:",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestGenerateSimpleSendsQuestionOnly(t *testing.T) {
	m := &fakeModel{reply: "hi"}
	p := NewProvider(m, 0, quiet())
	p.GenerateSimple(context.Background(), "hello there")
	if m.prompts[0] != "hello there" {
		t.Fatalf("expected bare question, got %q", m.prompts[0])
	}
}

func TestGenerateApologisesOnError(t *testing.T) {
	p := NewProvider(&fakeModel{err: errors.New("quota exceeded")}, 0, quiet())
	got := p.Generate(context.Background(), "q", "c")
	if got != "I apologize, but I encountered an error: quota exceeded" {
		t.Fatalf("unexpected apology %q", got)
	}
}

func TestGenerateApologisesOnEmptyText(t *testing.T) {
	p := NewProvider(&fakeModel{reply: "  "}, 0, quiet())
	got := p.Generate(context.Background(), "q", "c")
	if !strings.HasPrefix(got, "I apologize, but I encountered an error: ") {
		t.Fatalf("expected apology, got %q", got)
	}
}

func TestGenerateTimeout(t *testing.T) {
	p := NewProvider(&fakeModel{block: true}, 20*time.Millisecond, quiet())
	got := p.Generate(context.Background(), "q", "c")
	if !strings.Contains(got, context.DeadlineExceeded.Error()) {
		t.Fatalf("expected deadline apology, got %q", got)
	}
}

func TestNewWithoutKeyApologises(t *testing.T) {
	p := New(context.Background(), config.LLMConfig{Provider: "gemini"}, quiet())
	got := p.GenerateSimple(context.Background(), "q")
	if !strings.Contains(got, "llm.api_key is not set") {
		t.Fatalf("expected missing key apology, got %q", got)
	}
}

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "gpt-4o-mini" {
			t.Errorf("unexpected model %v", req["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": "answer"}}},
		})
	}))
	defer server.Close()

	m, err := NewOpenAI(config.LLMConfig{Provider: "openai", APIKey: "k", Model: "gpt-4o-mini", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	got, err := m.Complete(context.Background(), "question")
	if err != nil || got != "answer" {
		t.Fatalf("Complete = %q, %v", got, err)
	}
}
