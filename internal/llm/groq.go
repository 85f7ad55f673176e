package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type GroqConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	SystemPrompt string
}

// GroqClient calls Groq's OpenAI-compatible chat completions endpoint.
type GroqClient struct {
	model        string
	systemPrompt string
	client       *openai.Client
}

func NewGroqClient(cfg GroqConfig) *GroqClient {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(baseURL, "/")
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &GroqClient{
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		client:       openai.NewClientWithConfig(oc),
	}
}

// StatusError is a non-2xx answer from the provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }

func (c *GroqClient) Model() string { return c.model }

func (c *GroqClient) Complete(ctx context.Context, req Request) (Response, error) {
	res, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: buildMessages(c.systemPrompt, req),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return Response{}, &StatusError{Provider: ProviderGroq, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return Response{}, fmt.Errorf("groq chat completion: %w", err)
	}
	if len(res.Choices) == 0 {
		return Response{}, errors.New("groq returned no choices")
	}

	return Response{
		Text:             res.Choices[0].Message.Content,
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
	}, nil
}

func buildMessages(systemPrompt string, req Request) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, 2*len(req.History)+2)
	if strings.TrimSpace(systemPrompt) != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, t := range req.History {
		msgs = append(msgs,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.Human},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.AI},
		)
	}
	return append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Input,
	})
}
