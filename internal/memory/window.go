package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	MinWindow = 1
	MaxWindow = 15
)

// Window keeps the k most recent turns; saving past capacity evicts the oldest.
type Window struct {
	mu    sync.RWMutex
	k     int
	turns []Turn
}

func NewWindow(k int) *Window {
	if k < MinWindow {
		k = MinWindow
	}
	return &Window{k: k, turns: make([]Turn, 0, k)}
}

func (w *Window) K() int { return w.k }

func (w *Window) SaveTurn(t Turn) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = append(w.turns, t)
	if over := len(w.turns) - w.k; over > 0 {
		w.turns = append(w.turns[:0:0], w.turns[over:]...)
	}
}

// Turns returns the retained turns in chronological order.
func (w *Window) Turns() []Turn {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Turn, len(w.turns))
	copy(out, w.turns)
	return out
}

func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.turns)
}
