package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ent0n29/chatassistant/internal/chat"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrEnded        = errors.New("session ended")
	ErrTurnInFlight = errors.New("another request is in flight for this session")
)

type Session struct {
	ID             string    `json:"session_id"`
	Status         Status    `json:"status"`
	Busy           bool      `json:"busy"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

type entry struct {
	meta     Session
	state    *chat.State
	inflight *semaphore.Weighted
}

// Manager owns every live chat session of the process. Sessions are isolated from
// each other; within one session at most one mutating operation runs at a time.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*entry
	builder           *chat.Builder
	inactivityTimeout time.Duration
	endedRetention    time.Duration
	onExpire          func(*Session)
}

func NewManager(builder *chat.Builder, inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*entry),
		builder:           builder,
		inactivityTimeout: inactivityTimeout,
		endedRetention:    10 * time.Minute,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// SetEndedRetention controls how long ended sessions stay readable before they are dropped.
func (m *Manager) SetEndedRetention(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endedRetention = d
}

func (m *Manager) InactivityTimeout() time.Duration { return m.inactivityTimeout }

func (m *Manager) Create() *Session {
	now := time.Now().UTC()
	e := &entry{
		meta: Session{
			ID:             uuid.NewString(),
			Status:         StatusActive,
			StartedAt:      now,
			LastActivityAt: now,
		},
		state:    chat.NewState(m.builder),
		inflight: semaphore.NewWeighted(1),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[e.meta.ID] = e
	return e.snapshot()
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return e.snapshot(), nil
}

// State returns the chat state for read-only inspection.
func (m *Manager) State(sessionID string) (*chat.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return e.state, nil
}

// Do runs fn against the session's chat state. A second call while one is running
// fails immediately with ErrTurnInFlight instead of queueing.
func (m *Manager) Do(sessionID string, fn func(*chat.State) error) error {
	m.mu.Lock()
	e, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if e.meta.Status != StatusActive {
		m.mu.Unlock()
		return ErrEnded
	}
	if !e.inflight.TryAcquire(1) {
		m.mu.Unlock()
		return ErrTurnInFlight
	}
	e.meta.Busy = true
	e.meta.LastActivityAt = time.Now().UTC()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		e.meta.Busy = false
		e.meta.LastActivityAt = time.Now().UTC()
		m.mu.Unlock()
		e.inflight.Release(1)
	}()
	return fn(e.state)
}

func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	e.meta.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	e.meta.Status = StatusEnded
	e.meta.LastActivityAt = time.Now().UTC()
	return e.snapshot(), nil
}

// EndAll marks every active session ended and returns how many were affected.
func (m *Manager) EndAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	n := 0
	for _, e := range m.sessions {
		if e.meta.Status != StatusActive {
			continue
		}
		e.meta.Status = StatusEnded
		e.meta.LastActivityAt = now
		n++
	}
	return n
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.sessions {
		if e.meta.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, e := range m.sessions {
		switch {
		case e.meta.Status == StatusEnded:
			if now.Sub(e.meta.LastActivityAt) >= m.endedRetention {
				delete(m.sessions, id)
			}
		case e.meta.Busy:
		case now.Sub(e.meta.LastActivityAt) >= m.inactivityTimeout:
			e.meta.Status = StatusEnded
			e.meta.LastActivityAt = now
			expired = append(expired, e.snapshot())
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func (e *entry) snapshot() *Session {
	c := e.meta
	return &c
}
