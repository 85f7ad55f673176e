package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chat service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	LogLevel  string
	LogFormat string

	LLMProvider       string
	GroqAPIKey        string
	GroqBaseURL       string
	LLMRequestTimeout time.Duration
	SystemPrompt      string

	ModelsFile          string
	DefaultMemoryWindow int
}

// APIKeyPresent reports whether a non-blank credential was configured.
func (c Config) APIKeyPresent() bool {
	return strings.TrimSpace(c.GroqAPIKey) != ""
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "chatassistant"),
		AllowAnyOrigin:   false,
		LogLevel:         strings.ToLower(envOrDefault("APP_LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(envOrDefault("APP_LOG_FORMAT", "console")),
		LLMProvider:      strings.ToLower(envOrDefault("LLM_PROVIDER", "groq")),
		GroqAPIKey:       stringsTrimSpace("GROQ_API_KEY"),
		GroqBaseURL:      envOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		SystemPrompt:     stringsTrimSpace("CHAT_SYSTEM_PROMPT"),
		ModelsFile:       stringsTrimSpace("CHAT_MODELS_FILE"),

		DefaultMemoryWindow:      5,
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
		LLMRequestTimeout:        60 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMRequestTimeout, err = durationFromEnv("LLM_REQUEST_TIMEOUT", cfg.LLMRequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultMemoryWindow, err = intFromEnv("CHAT_DEFAULT_MEMORY_WINDOW", cfg.DefaultMemoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. Load calls it; callers that override
// fields afterwards (CLI flags) should call it again.
func (c Config) Validate() error {
	if c.SessionInactivityTimeout < 5*time.Second {
		return fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if c.LLMRequestTimeout <= 0 {
		return fmt.Errorf("LLM_REQUEST_TIMEOUT must be positive")
	}
	if c.DefaultMemoryWindow < 1 || c.DefaultMemoryWindow > 15 {
		return fmt.Errorf("CHAT_DEFAULT_MEMORY_WINDOW must be between 1 and 15")
	}
	switch c.LLMProvider {
	case "groq", "mock":
	default:
		return fmt.Errorf("invalid LLM_PROVIDER: %q (expected groq|mock)", c.LLMProvider)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid APP_LOG_FORMAT: %q (expected console|json)", c.LogFormat)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
