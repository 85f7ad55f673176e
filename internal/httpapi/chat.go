package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ent0n29/chatassistant/internal/chat"
	"github.com/ent0n29/chatassistant/internal/policy"
	"github.com/ent0n29/chatassistant/internal/reliability"
	"github.com/ent0n29/chatassistant/internal/session"
)

type turnResponse struct {
	Turn      chat.Turn    `json:"turn"`
	ReplyHTML string       `json:"reply_html"`
	Session   session.View `json:"session"`
}

type failure struct {
	status int
	code   string
	detail string
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.sessions.Create()
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	// Build eagerly so a missing credential is reported before the first message.
	if err := s.sessions.Do(sess.ID, func(st *chat.State) error { return st.EnsureConversation() }); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("conversation not ready")
	}

	view, err := s.sessions.Describe(sess.ID)
	if err != nil {
		s.respondFailure(w, s.classify(err))
		return
	}
	log.Info().Str("session_id", sess.ID).Str("model", view.Settings.Model).Msg("session created")
	respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Describe(chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, s.classify(err))
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req session.MessageRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	turn, err := s.runTurn(r.Context(), id, req.Text)
	if err != nil {
		s.respondFailure(w, s.classify(err))
		return
	}
	if turn == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	view, err := s.sessions.Describe(id)
	if err != nil {
		s.respondFailure(w, s.classify(err))
		return
	}
	respondJSON(w, http.StatusOK, turnResponse{
		Turn:      *turn,
		ReplyHTML: s.markdown.SafeHTML(turn.AI),
		Session:   view,
	})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.resetSession(id); err != nil {
		s.respondFailure(w, s.classify(err))
		return
	}
	view, err := s.sessions.Describe(id)
	if err != nil {
		s.respondFailure(w, s.classify(err))
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req session.SettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "settings body is required")
		return
	}
	if err := s.updateSettings(id, chat.Settings{Model: req.Model, MemoryWindow: req.MemoryWindow}); err != nil {
		s.respondFailure(w, s.classify(err))
		return
	}
	view, err := s.sessions.Describe(id)
	if err != nil {
		s.respondFailure(w, s.classify(err))
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

// runTurn executes one user message against the session. A nil turn with a nil
// error means the input was blank and nothing happened.
func (s *Server) runTurn(ctx context.Context, sessionID, text string) (*chat.Turn, error) {
	if strings.TrimSpace(text) == "" {
		st, err := s.sessions.State(sessionID)
		if err != nil {
			return nil, err
		}
		s.metrics.ObserveTurn(st.Settings().Model, "empty", 0)
		return nil, nil
	}

	var (
		turn  *chat.Turn
		model string
	)
	start := time.Now()
	err := s.sessions.Do(sessionID, func(st *chat.State) error {
		model = st.Settings().Model
		var err error
		turn, err = st.Submit(ctx, text)
		return err
	})
	elapsed := time.Since(start)

	switch kind, ok := chat.KindOf(err); {
	case err == nil:
		s.metrics.ObserveTurn(model, "ok", elapsed)
		log.Info().
			Str("session_id", sessionID).
			Str("model", model).
			Int64("latency_ms", elapsed.Milliseconds()).
			Msg("turn completed")
		log.Debug().Str("session_id", sessionID).Str("input", policy.Preview(text, 80)).Msg("turn input")
	case ok:
		s.metrics.ObserveTurn(model, string(kind), elapsed)
		ev := log.Warn().
			Err(errors.New(policy.RedactSecret(err.Error(), s.cfg.GroqAPIKey))).
			Str("session_id", sessionID).
			Str("model", model).
			Str("kind", string(kind))
		if kind == chat.KindRemoteCall {
			cause := reliability.Classify(err)
			s.metrics.RemoteFailures.WithLabelValues(model, string(cause)).Inc()
			ev = ev.Str("cause", string(cause)).Int64("latency_ms", elapsed.Milliseconds())
		}
		ev.Msg("turn failed")
	}
	return turn, err
}

func (s *Server) resetSession(id string) error {
	err := s.sessions.Do(id, func(st *chat.State) error { return st.Reset() })
	if err == nil || isChatError(err) {
		s.metrics.SessionEvents.WithLabelValues("reset").Inc()
		log.Info().Str("session_id", id).Msg("conversation reset")
	}
	return err
}

func (s *Server) updateSettings(id string, next chat.Settings) error {
	var changed bool
	err := s.sessions.Do(id, func(st *chat.State) error {
		var err error
		changed, err = st.Configure(next)
		return err
	})
	if changed {
		s.metrics.SessionEvents.WithLabelValues("reconfigured").Inc()
		log.Info().
			Str("session_id", id).
			Str("model", next.Model).
			Int("memory_window", next.MemoryWindow).
			Msg("conversation reconfigured")
	}
	return err
}

func isChatError(err error) bool {
	_, ok := chat.KindOf(err)
	return ok
}

func (s *Server) classify(err error) failure {
	detail := policy.RedactSecret(err.Error(), s.cfg.GroqAPIKey)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return failure{http.StatusNotFound, "session_not_found", detail}
	case errors.Is(err, session.ErrEnded):
		return failure{http.StatusGone, "session_ended", detail}
	case errors.Is(err, session.ErrTurnInFlight):
		return failure{http.StatusConflict, "turn_in_flight", detail}
	case errors.Is(err, chat.ErrConfiguration):
		return failure{http.StatusBadRequest, string(chat.KindConfiguration), detail}
	case errors.Is(err, chat.ErrCredentialMissing):
		return failure{http.StatusServiceUnavailable, string(chat.KindCredentialMissing), detail}
	case errors.Is(err, chat.ErrRemoteCall):
		return failure{http.StatusBadGateway, string(chat.KindRemoteCall), detail}
	default:
		return failure{http.StatusInternalServerError, "internal_error", detail}
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, f failure) {
	respondError(w, f.status, f.code, f.detail)
}
