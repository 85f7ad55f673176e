package chat

import (
	"context"
	"strings"
	"sync"
)

// State owns the settings and transcript of one interactive session together with
// the conversation derived from them.
//
// Callers must not run Submit, Reset or Configure concurrently on the same State;
// read accessors are safe at any time.
type State struct {
	mu           sync.RWMutex
	builder      *Builder
	settings     Settings
	transcript   []Turn
	conversation *Conversation
}

func NewState(builder *Builder) *State {
	s := &State{builder: builder}
	s.Initialize()
	return s
}

// Initialize fills in whatever is missing and leaves existing values alone.
func (s *State) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transcript == nil {
		s.transcript = []Turn{}
	}
	if s.settings == (Settings{}) {
		s.settings = s.builder.DefaultSettings()
	}
}

func (s *State) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *State) Transcript() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// ContextTurns returns what the conversation will send as history; empty while unset.
func (s *State) ContextTurns() []Turn {
	s.mu.RLock()
	conv := s.conversation
	s.mu.RUnlock()
	if conv == nil {
		return []Turn{}
	}
	return conv.Context()
}

func (s *State) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversation != nil
}

// EnsureConversation builds the conversation if it is unset.
func (s *State) EnsureConversation() error {
	_, err := s.ensure()
	return err
}

func (s *State) ensure() (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversation != nil {
		return s.conversation, nil
	}
	conv, err := s.builder.Build(s.settings, s.transcript)
	if err != nil {
		return nil, err
	}
	s.conversation = conv
	return conv, nil
}

// Submit runs one request/response cycle. Input that is empty after trimming is a
// no-op and returns a nil turn with no error. On failure nothing is recorded and the
// conversation stays usable.
func (s *State) Submit(ctx context.Context, question string) (*Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil
	}

	conv, err := s.ensure()
	if err != nil {
		return nil, err
	}

	turn, err := conv.Predict(ctx, question)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.transcript = append(s.transcript, turn)
	s.mu.Unlock()
	return &turn, nil
}

// Reset empties the transcript and rebuilds the conversation. If the rebuild fails
// the conversation is left unset and the error returned.
func (s *State) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = []Turn{}
	s.conversation = nil
	conv, err := s.builder.Build(s.settings, s.transcript)
	if err != nil {
		return err
	}
	s.conversation = conv
	return nil
}

// Configure applies next and rebuilds from the existing transcript when it differs
// from the current settings. Invalid settings change nothing.
func (s *State) Configure(next Settings) (bool, error) {
	next.Model = strings.TrimSpace(next.Model)
	if err := s.builder.Validate(next); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if next == s.settings {
		return false, nil
	}
	s.settings = next
	s.conversation = nil
	conv, err := s.builder.Build(s.settings, s.transcript)
	if err != nil {
		return true, err
	}
	s.conversation = conv
	return true, nil
}
