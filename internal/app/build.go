package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ent0n29/chatassistant/internal/catalog"
	"github.com/ent0n29/chatassistant/internal/chat"
	"github.com/ent0n29/chatassistant/internal/config"
	"github.com/ent0n29/chatassistant/internal/httpapi"
	"github.com/ent0n29/chatassistant/internal/llm"
	"github.com/ent0n29/chatassistant/internal/observability"
	"github.com/ent0n29/chatassistant/internal/session"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Manager
	Models   *catalog.Catalog
	Builder  *chat.Builder
	Metrics  *observability.Metrics

	// Cleanup should be called on shutdown; it ends every live session.
	Cleanup func() error
}

// LoadCatalog returns the model catalog named by cfg, or the built-in one.
func LoadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.ModelsFile == "" {
		return catalog.Default(), nil
	}
	models, err := catalog.Load(cfg.ModelsFile)
	if err != nil {
		return nil, fmt.Errorf("model catalog init failed: %w", err)
	}
	return models, nil
}

func Build(_ context.Context, cfg config.Config) (*BuildResult, error) {
	models, err := LoadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	factory, err := llm.NewFactory(llm.Config{
		Provider:     cfg.LLMProvider,
		APIKey:       cfg.GroqAPIKey,
		BaseURL:      cfg.GroqBaseURL,
		Timeout:      cfg.LLMRequestTimeout,
		SystemPrompt: cfg.SystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("llm client init failed: %w", err)
	}
	if llm.RequiresCredential(cfg.LLMProvider) && !cfg.APIKeyPresent() {
		log.Warn().Str("provider", cfg.LLMProvider).Msg("GROQ_API_KEY is not set; chat input will be disabled")
	}

	builder := chat.NewBuilder(models, factory)
	builder.SetDefaultMemoryWindow(cfg.DefaultMemoryWindow)

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	sessions := session.NewManager(builder, cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(s *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
		log.Info().Str("session_id", s.ID).Msg("session expired")
	})

	api := httpapi.New(cfg, sessions, models, metrics)

	cleanup := func() error {
		ended := sessions.EndAll()
		metrics.ActiveSessions.Set(0)
		log.Debug().Int("sessions", ended).Msg("sessions ended")
		return nil
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Models:   models,
		Builder:  builder,
		Metrics:  metrics,
		Cleanup:  cleanup,
	}, nil
}
