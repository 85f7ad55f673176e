package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ent0n29/chatassistant/internal/chat"
	"github.com/ent0n29/chatassistant/internal/protocol"
)

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	if _, err := s.sessions.Get(sessionID); err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	log.Debug().Str("session_id", sessionID).Msg("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 64)
	outbound := make(chan any, 64)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		s.runConnection(ctx, sessionID, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := protocol.TypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(s.sessions.InactivityTimeout()))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.sessions.InactivityTimeout()))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.sessions.InactivityTimeout()))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.emit(ctx, outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Detail:    err.Error(),
			})
			continue
		}
		if t, ok := protocol.TypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

// runConnection handles client messages one at a time, so a single socket never
// has two turns in flight.
func (s *Server) runConnection(ctx context.Context, sessionID string, inbound <-chan any, outbound chan<- any) {
	s.emitSnapshot(ctx, sessionID, outbound)
	if !s.chatEnabled() {
		s.emit(ctx, outbound, protocol.SystemEvent{
			Type:      protocol.TypeSystemEvent,
			SessionID: sessionID,
			Code:      string(chat.KindCredentialMissing),
			Detail:    "API key is missing; chat input is disabled.",
		})
	}

	for msg := range inbound {
		switch m := msg.(type) {
		case protocol.UserMessage:
			if strings.TrimSpace(m.Text) == "" {
				continue
			}
			s.emitSystem(ctx, outbound, sessionID, "busy")
			turn, err := s.runTurn(ctx, sessionID, m.Text)
			switch {
			case err != nil:
				s.emitFailure(ctx, outbound, sessionID, err)
			case turn != nil:
				s.emit(ctx, outbound, protocol.AssistantReply{
					Type:      protocol.TypeAssistantReply,
					SessionID: sessionID,
					Turn:      *turn,
					ReplyHTML: s.markdown.SafeHTML(turn.AI),
				})
			}
			s.emitSystem(ctx, outbound, sessionID, "idle")
		case protocol.ClientControl:
			if m.Action == protocol.ActionReset {
				if err := s.resetSession(sessionID); err != nil {
					s.emitFailure(ctx, outbound, sessionID, err)
				}
			}
			s.emitSnapshot(ctx, sessionID, outbound)
		case protocol.SettingsUpdate:
			err := s.updateSettings(sessionID, chat.Settings{Model: m.Model, MemoryWindow: m.MemoryWindow})
			if err != nil {
				s.emitFailure(ctx, outbound, sessionID, err)
			}
			s.emitSnapshot(ctx, sessionID, outbound)
		}
	}
}

func (s *Server) emitSnapshot(ctx context.Context, sessionID string, outbound chan<- any) {
	view, err := s.sessions.Describe(sessionID)
	if err != nil {
		s.emitFailure(ctx, outbound, sessionID, err)
		return
	}
	s.emit(ctx, outbound, protocol.SessionSnapshot{Type: protocol.TypeSessionSnapshot, Session: view})
}

func (s *Server) emitSystem(ctx context.Context, outbound chan<- any, sessionID, code string) {
	s.emit(ctx, outbound, protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: sessionID, Code: code})
}

func (s *Server) emitFailure(ctx context.Context, outbound chan<- any, sessionID string, err error) {
	f := s.classify(err)
	s.emit(ctx, outbound, protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: sessionID,
		Code:      f.code,
		Detail:    f.detail,
	})
}

func (s *Server) emit(ctx context.Context, outbound chan<- any, msg any) {
	select {
	case <-ctx.Done():
	case outbound <- msg:
	}
}
