package httpapi

import (
	"net/http"

	"github.com/ent0n29/chatassistant/internal/catalog"
	"github.com/ent0n29/chatassistant/internal/llm"
	"github.com/ent0n29/chatassistant/internal/memory"
)

type statusResponse struct {
	Provider            string `json:"provider"`
	APIKeyPresent       bool   `json:"api_key_present"`
	APIStatus           string `json:"api_status"`
	ChatEnabled         bool   `json:"chat_enabled"`
	Detail              string `json:"detail,omitempty"`
	DefaultModel        string `json:"default_model"`
	DefaultMemoryWindow int    `json:"default_memory_window"`
	MemoryWindowMin     int    `json:"memory_window_min"`
	MemoryWindowMax     int    `json:"memory_window_max"`
}

type modelEntry struct {
	catalog.Model
	Label string `json:"label"`
}

type modelsResponse struct {
	Default string       `json:"default"`
	Models  []modelEntry `json:"models"`
}

// chatEnabled mirrors the credential presence check that gates the chat input.
func (s *Server) chatEnabled() bool {
	if !llm.RequiresCredential(s.cfg.LLMProvider) {
		return true
	}
	return s.cfg.APIKeyPresent()
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Provider:            s.cfg.LLMProvider,
		APIKeyPresent:       s.cfg.APIKeyPresent(),
		ChatEnabled:         s.chatEnabled(),
		DefaultModel:        s.models.DefaultModel().ID,
		DefaultMemoryWindow: s.cfg.DefaultMemoryWindow,
		MemoryWindowMin:     memory.MinWindow,
		MemoryWindowMax:     memory.MaxWindow,
	}
	switch {
	case !llm.RequiresCredential(s.cfg.LLMProvider):
		resp.APIStatus = "not_required"
		resp.Detail = "Mock provider: replies are generated locally."
	case resp.APIKeyPresent:
		resp.APIStatus = "connected"
	default:
		resp.APIStatus = "missing"
		resp.Detail = "GROQ_API_KEY is missing. Please check your .env file."
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	models := s.models.Models()
	out := modelsResponse{
		Default: s.models.DefaultModel().ID,
		Models:  make([]modelEntry, 0, len(models)),
	}
	for _, m := range models {
		out.Models = append(out.Models, modelEntry{Model: m, Label: m.Label()})
	}
	respondJSON(w, http.StatusOK, out)
}
