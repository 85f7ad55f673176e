package session

import (
	"time"

	"github.com/ent0n29/chatassistant/internal/chat"
)

// View is the full client-facing picture of one session.
type View struct {
	SessionID       string        `json:"session_id"`
	Status          Status        `json:"status"`
	Busy            bool          `json:"busy"`
	Ready           bool          `json:"ready"`
	Settings        chat.Settings `json:"settings"`
	Transcript      []chat.Turn   `json:"transcript"`
	ContextTurns    int           `json:"context_turns"`
	StartedAt       time.Time     `json:"started_at"`
	LastActivityAt  time.Time     `json:"last_activity_at"`
	InactivityTTLMS int64         `json:"inactivity_ttl_ms"`
}

// SettingsRequest updates a session's model and memory window.
type SettingsRequest struct {
	Model        string `json:"model"`
	MemoryWindow int    `json:"memory_window"`
}

// MessageRequest submits one user message.
type MessageRequest struct {
	Text string `json:"text"`
}

// Describe assembles a View for sessionID.
func (m *Manager) Describe(sessionID string) (View, error) {
	meta, err := m.Get(sessionID)
	if err != nil {
		return View{}, err
	}
	state, err := m.State(sessionID)
	if err != nil {
		return View{}, err
	}
	return View{
		SessionID:       meta.ID,
		Status:          meta.Status,
		Busy:            meta.Busy,
		Ready:           state.Ready(),
		Settings:        state.Settings(),
		Transcript:      state.Transcript(),
		ContextTurns:    len(state.ContextTurns()),
		StartedAt:       meta.StartedAt,
		LastActivityAt:  meta.LastActivityAt,
		InactivityTTLMS: m.inactivityTimeout.Milliseconds(),
	}, nil
}
