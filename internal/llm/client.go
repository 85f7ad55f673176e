// Package llm bridges chat sessions with a hosted completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/chatassistant/internal/memory"
)

const (
	ProviderGroq = "groq"
	ProviderMock = "mock"

	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultTimeout     = 60 * time.Second

	// DefaultSystemPrompt frames the windowed history as a friendly conversation.
	DefaultSystemPrompt = "The following is a friendly conversation between a human and an AI. " +
		"The AI is talkative and provides lots of specific details from its context. " +
		"If the AI does not know the answer to a question, it truthfully says it does not know."
)

var ErrCredentialMissing = errors.New("api credential is missing")

// Request is what one completion call sends: prior turns in chronological order plus the new input.
type Request struct {
	History []memory.Turn `json:"history,omitempty"`
	Input   string        `json:"input"`
}

type Response struct {
	Text             string `json:"text"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
}

// Completer performs one blocking request/response cycle against a model.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Model() string
}

// Factory builds a Completer bound to a model identifier.
type Factory func(model string) (Completer, error)

// Config controls factory construction.
type Config struct {
	Provider     string
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	SystemPrompt string
}

// NewFactory resolves the provider once; the returned factory reports
// ErrCredentialMissing on every call when the provider needs a key and none is set.
func NewFactory(cfg Config) (Factory, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderGroq
	}
	systemPrompt := cfg.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}

	switch provider {
	case ProviderGroq:
		key := strings.TrimSpace(cfg.APIKey)
		return func(model string) (Completer, error) {
			if key == "" {
				return nil, ErrCredentialMissing
			}
			return NewGroqClient(GroqConfig{
				APIKey:       key,
				BaseURL:      cfg.BaseURL,
				Model:        model,
				Timeout:      cfg.Timeout,
				SystemPrompt: systemPrompt,
			}), nil
		}, nil
	case ProviderMock:
		return func(model string) (Completer, error) {
			return NewMockClient(model), nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// RequiresCredential reports whether provider needs an API key to serve turns.
func RequiresCredential(provider string) bool {
	p := strings.ToLower(strings.TrimSpace(provider))
	return p == "" || p == ProviderGroq
}
