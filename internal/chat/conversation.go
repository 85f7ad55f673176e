// Package chat implements the conversational session: a bounded window of prior
// turns wrapped around one remote completion call per user message.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/chatassistant/internal/catalog"
	"github.com/ent0n29/chatassistant/internal/llm"
	"github.com/ent0n29/chatassistant/internal/memory"
)

const DefaultMemoryWindow = 5

// Turn is one exchanged {human, AI} pair. Turns are never modified after creation.
type Turn = memory.Turn

// Settings selects the model and how many prior turns are sent as context.
type Settings struct {
	Model        string `json:"model"`
	MemoryWindow int    `json:"memory_window"`
}

// Conversation is derived state: everything in it can be rebuilt from
// Settings plus the transcript.
type Conversation struct {
	settings Settings
	memory   *memory.Window
	client   llm.Completer
}

func (c *Conversation) Settings() Settings { return c.settings }

// Context returns the turns that the next request will carry, oldest first.
func (c *Conversation) Context() []Turn { return c.memory.Turns() }

// Predict sends input with the current context window and records the resulting turn
// in the window. Any failure of the remote call is reported as KindRemoteCall and
// leaves the window untouched.
func (c *Conversation) Predict(ctx context.Context, input string) (Turn, error) {
	resp, err := c.client.Complete(ctx, llm.Request{
		History: c.memory.Turns(),
		Input:   input,
	})
	if err != nil {
		return Turn{}, &Error{Kind: KindRemoteCall, Err: err}
	}

	turn := Turn{
		ID:        uuid.NewString(),
		Human:     input,
		AI:        resp.Text,
		CreatedAt: time.Now().UTC(),
	}
	c.memory.SaveTurn(turn)
	return turn, nil
}

// Builder produces conversations bound to a model and preloaded with bounded history.
type Builder struct {
	catalog       *catalog.Catalog
	newClient     llm.Factory
	defaultWindow int
}

func NewBuilder(models *catalog.Catalog, newClient llm.Factory) *Builder {
	return &Builder{
		catalog:       models,
		newClient:     newClient,
		defaultWindow: DefaultMemoryWindow,
	}
}

// SetDefaultMemoryWindow changes the window used by DefaultSettings. Out of range values are ignored.
func (b *Builder) SetDefaultMemoryWindow(k int) {
	if k >= memory.MinWindow && k <= memory.MaxWindow {
		b.defaultWindow = k
	}
}

func (b *Builder) Catalog() *catalog.Catalog { return b.catalog }

func (b *Builder) DefaultSettings() Settings {
	return Settings{
		Model:        b.catalog.DefaultModel().ID,
		MemoryWindow: b.defaultWindow,
	}
}

func (b *Builder) Validate(s Settings) error {
	if !b.catalog.Contains(s.Model) {
		return configError("unsupported model %q", s.Model)
	}
	if s.MemoryWindow < memory.MinWindow || s.MemoryWindow > memory.MaxWindow {
		return configError("memory window %d outside [%d, %d]", s.MemoryWindow, memory.MinWindow, memory.MaxWindow)
	}
	return nil
}

// Build validates s, replays transcript into a fresh window (oldest first, so only
// the most recent MemoryWindow turns survive) and binds a client. No network I/O.
func (b *Builder) Build(s Settings, transcript []Turn) (*Conversation, error) {
	if err := b.Validate(s); err != nil {
		return nil, err
	}

	client, err := b.newClient(s.Model)
	if err != nil {
		if errors.Is(err, llm.ErrCredentialMissing) {
			return nil, &Error{Kind: KindCredentialMissing, Err: err}
		}
		return nil, &Error{Kind: KindConfiguration, Err: fmt.Errorf("create client: %w", err)}
	}

	window := memory.NewWindow(s.MemoryWindow)
	for _, t := range transcript {
		window.SaveTurn(t)
	}

	return &Conversation{
		settings: s,
		memory:   window,
		client:   client,
	}, nil
}
