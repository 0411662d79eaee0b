// Package generation turns a question and retrieved context into an answer
// using a hosted language model.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mohammad-safakhou/sitechat/config"
)

// ErrEmptyResponse is returned by a Model that produced no text.
var ErrEmptyResponse = errors.New("generation: model returned an empty response")

const promptTemplate = `You are a helpful AI assistant. Answer the user's question based on the following context.

Context:
%s

User Question: %s

Please provide a clear and accurate answer based on the context provided. If the context doesn't contain relevant information, politely say so.

Answer:`

// Model is a single-prompt completion backend.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}

// Provider wraps a Model with the prompt format and the apology policy:
// Generate never fails, it returns an apology string instead.
type Provider struct {
	model   Model
	timeout time.Duration
	logger  *log.Logger
}

func NewProvider(model Model, timeout time.Duration, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.New(os.Stdout, "[LLM] ", log.LstdFlags)
	}
	return &Provider{model: model, timeout: timeout, logger: logger}
}

// New builds the provider for cfg. Construction errors (missing key, bad
// endpoint) are deferred: the returned provider answers with an apology.
func New(ctx context.Context, cfg config.LLMConfig, logger *log.Logger) *Provider {
	cfg = cfg.Normalize()
	var (
		model Model
		err   error
	)
	switch cfg.Provider {
	case config.LLMProviderOpenAI:
		model, err = NewOpenAI(cfg)
	default:
		model, err = NewGemini(ctx, cfg)
	}
	if err != nil {
		model = failingModel{err: err}
	}
	p := NewProvider(model, cfg.Timeout, logger)
	if err != nil {
		p.logger.Printf("warn: %s model unavailable: %v", cfg.Provider, err)
	}
	return p
}

// BuildPrompt renders the context-grounded prompt.
func BuildPrompt(question, contextText string) string {
	return fmt.Sprintf(promptTemplate, contextText, question)
}

// Generate answers question from contextText.
func (p *Provider) Generate(ctx context.Context, question, contextText string) string {
	return p.complete(ctx, BuildPrompt(question, contextText))
}

// GenerateSimple sends question without any context.
func (p *Provider) GenerateSimple(ctx context.Context, question string) string {
	return p.complete(ctx, question)
}

func (p *Provider) complete(ctx context.Context, prompt string) string {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	text, err := p.model.Complete(ctx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		p.logger.Printf("warn: generation failed: %v", err)
		return Apology(err)
	}
	return text
}

// Apology is the answer text used when generation fails.
func Apology(err error) string {
	return fmt.Sprintf("I apologize, but I encountered an error: %v", err)
}

func (p *Provider) Close() error {
	return p.model.Close()
}

type failingModel struct{ err error }

func (f failingModel) Complete(context.Context, string) (string, error) { return "", f.err }
func (f failingModel) Close() error                                     { return nil }
