package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient provides deterministic local replies when no hosted model is configured.
type MockClient struct {
	model string
}

func NewMockClient(model string) *MockClient { return &MockClient{model: model} }

func (c *MockClient) Model() string { return c.model }

func (c *MockClient) Complete(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}
	return Response{Text: buildMockReply(req)}, nil
}

func buildMockReply(req Request) string {
	base := strings.TrimSpace(req.Input)
	if base == "" {
		base = "I am listening."
	}

	if len(req.History) == 0 {
		return fmt.Sprintf("I heard you: %s", base)
	}

	last := strings.TrimSpace(req.History[len(req.History)-1].Human)
	if last == "" {
		return fmt.Sprintf("I heard you: %s", base)
	}

	return fmt.Sprintf("I heard you: %s\nI also remember: %s", base, last)
}
