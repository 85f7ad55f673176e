package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ent0n29/chatassistant/internal/catalog"
	"github.com/ent0n29/chatassistant/internal/chat"
	"github.com/ent0n29/chatassistant/internal/llm"
)

func newTestManager(timeout time.Duration) *Manager {
	factory, err := llm.NewFactory(llm.Config{Provider: llm.ProviderMock})
	if err != nil {
		panic(err)
	}
	return NewManager(chat.NewBuilder(catalog.Default(), factory), timeout)
}

func TestManagerCreateGetEnd(t *testing.T) {
	m := newTestManager(time.Minute)
	s := m.Create()
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusActive || got.Busy {
		t.Fatalf("unexpected session state: %+v", got)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
	if err := m.Do(s.ID, func(*chat.State) error { return nil }); !errors.Is(err, ErrEnded) {
		t.Fatalf("Do() on ended session error = %v, want ErrEnded", err)
	}
}

func TestManagerUnknownSession(t *testing.T) {
	m := newTestManager(time.Minute)
	if _, err := m.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if err := m.Do("missing", func(*chat.State) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Do() error = %v, want ErrNotFound", err)
	}
}

func TestManagerDoRejectsConcurrentTurn(t *testing.T) {
	m := newTestManager(time.Minute)
	s := m.Create()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- m.Do(s.ID, func(*chat.State) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	got, _ := m.Get(s.ID)
	if !got.Busy {
		t.Fatalf("Busy = false while a turn is in flight")
	}
	if err := m.Do(s.ID, func(*chat.State) error { return nil }); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("second Do() error = %v, want ErrTurnInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Do() error = %v", err)
	}
	if err := m.Do(s.ID, func(*chat.State) error { return nil }); err != nil {
		t.Fatalf("Do() after release error = %v", err)
	}
}

func TestManagerSessionsAreIsolated(t *testing.T) {
	m := newTestManager(time.Minute)
	a := m.Create()
	b := m.Create()

	err := m.Do(a.ID, func(st *chat.State) error {
		_, err := st.Submit(context.Background(), "hello")
		return err
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	va, err := m.Describe(a.ID)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	vb, err := m.Describe(b.ID)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if len(va.Transcript) != 1 || len(vb.Transcript) != 0 {
		t.Fatalf("transcripts = %d/%d, want 1/0", len(va.Transcript), len(vb.Transcript))
	}
	if !va.Ready || vb.Ready {
		t.Fatalf("ready = %v/%v, want true/false", va.Ready, vb.Ready)
	}
	if va.Settings.MemoryWindow != chat.DefaultMemoryWindow {
		t.Fatalf("MemoryWindow = %d, want %d", va.Settings.MemoryWindow, chat.DefaultMemoryWindow)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := newTestManager(30 * time.Millisecond)
	s := m.Create()

	var hooked atomic.Int32
	m.SetExpireHook(func(*Session) { hooked.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	time.Sleep(90 * time.Millisecond)
	cancel()
	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusEnded {
		t.Fatalf("Status = %q, want %q", got.Status, StatusEnded)
	}
	if hooked.Load() != 1 {
		t.Fatalf("expire hook calls = %d, want 1", hooked.Load())
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", m.ActiveCount())
	}
}

func TestManagerDropsEndedSessionsAfterRetention(t *testing.T) {
	m := newTestManager(time.Minute)
	m.SetEndedRetention(time.Millisecond)
	s := m.Create()
	if _, err := m.End(s.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	m.expireInactive()
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestManagerEndAll(t *testing.T) {
	m := newTestManager(time.Minute)
	a := m.Create()
	b := m.Create()
	if _, err := m.End(b.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	if n := m.EndAll(); n != 1 {
		t.Fatalf("EndAll() = %d, want 1", n)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", m.ActiveCount())
	}
	if err := m.Do(a.ID, func(*chat.State) error { return nil }); !errors.Is(err, ErrEnded) {
		t.Fatalf("Do() after EndAll error = %v, want ErrEnded", err)
	}
}
