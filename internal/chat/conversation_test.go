package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/chatassistant/internal/catalog"
	"github.com/ent0n29/chatassistant/internal/llm"
)

type llmCompleter = llm.Completer

type cancelingCompleter struct{}

func (cancelingCompleter) Model() string { return "m" }

func (cancelingCompleter) Complete(ctx context.Context, _ llm.Request) (llm.Response, error) {
	<-ctx.Done()
	return llm.Response{}, ctx.Err()
}

func TestBuildKeepsMostRecentTurnsInOrder(t *testing.T) {
	backend := &fakeBackend{}
	b := NewBuilder(catalog.Default(), backend.factory)

	for _, tc := range []struct{ n, k int }{{0, 3}, {2, 3}, {3, 3}, {10, 3}, {15, 15}, {20, 1}} {
		transcript := make([]Turn, 0, tc.n)
		for i := 0; i < tc.n; i++ {
			transcript = append(transcript, Turn{Human: fmt.Sprintf("q%d", i), AI: fmt.Sprintf("a%d", i)})
		}

		conv, err := b.Build(Settings{Model: "llama-3.1-8b-instant", MemoryWindow: tc.k}, transcript)
		require.NoError(t, err)

		want := min(tc.n, tc.k)
		ctxTurns := conv.Context()
		require.Len(t, ctxTurns, want, "n=%d k=%d", tc.n, tc.k)
		for i, turn := range ctxTurns {
			assert.Equal(t, transcript[tc.n-want+i].Human, turn.Human)
			assert.Equal(t, transcript[tc.n-want+i].AI, turn.AI)
		}
	}
}

func TestBuildDoesNotCallRemote(t *testing.T) {
	backend := &fakeBackend{}
	b := NewBuilder(catalog.Default(), backend.factory)
	_, err := b.Build(b.DefaultSettings(), []Turn{{Human: "a", AI: "b"}})
	require.NoError(t, err)
	assert.Empty(t, backend.client.requests)
}

func TestBuildRejectsUnsupportedModel(t *testing.T) {
	backend := &fakeBackend{}
	b := NewBuilder(catalog.Default(), backend.factory)
	_, err := b.Build(Settings{Model: "unknown", MemoryWindow: 5}, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Zero(t, backend.factories)
}

func TestBuildMapsFactoryErrors(t *testing.T) {
	b := NewBuilder(catalog.Default(), func(string) (llm.Completer, error) {
		return nil, fmt.Errorf("boom")
	})
	_, err := b.Build(b.DefaultSettings(), nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestDefaultMemoryWindowOverride(t *testing.T) {
	b := NewBuilder(catalog.Default(), (&fakeBackend{}).factory)
	b.SetDefaultMemoryWindow(9)
	assert.Equal(t, 9, b.DefaultSettings().MemoryWindow)
	b.SetDefaultMemoryWindow(99)
	assert.Equal(t, 9, b.DefaultSettings().MemoryWindow)
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Kind: KindCredentialMissing, Err: llm.ErrCredentialMissing})
	assert.ErrorIs(t, err, ErrCredentialMissing)
	assert.NotErrorIs(t, err, ErrRemoteCall)
	assert.ErrorIs(t, err, llm.ErrCredentialMissing)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindCredentialMissing, kind)

	_, ok = KindOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}
