package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/ent0n29/chatassistant/internal/catalog"
	"github.com/ent0n29/chatassistant/internal/llm"
)

type fakeCompleter struct {
	model    string
	requests []llm.Request
	failNext error
}

func (f *fakeCompleter) Model() string { return f.model }

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return llm.Response{}, err
	}
	return llm.Response{Text: fmt.Sprintf("reply to %s", req.Input)}, nil
}

// fakeBackend hands out one shared completer per builder so tests can inspect
// every request regardless of how often the conversation was rebuilt.
type fakeBackend struct {
	client    *fakeCompleter
	builds    []string
	noKey     bool
	factories int
}

func (b *fakeBackend) factory(model string) (llm.Completer, error) {
	b.factories++
	if b.noKey {
		return nil, llm.ErrCredentialMissing
	}
	b.builds = append(b.builds, model)
	if b.client == nil {
		b.client = &fakeCompleter{}
	}
	b.client.model = model
	return b.client, nil
}

func newTestState() (*State, *fakeBackend) {
	backend := &fakeBackend{}
	return NewState(NewBuilder(catalog.Default(), backend.factory)), backend
}

var errTransport = errors.New("dial tcp: connection refused")
