package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.LLMProvider != "groq" {
		t.Fatalf("LLMProvider = %q, want %q", cfg.LLMProvider, "groq")
	}
	if cfg.DefaultMemoryWindow != 5 {
		t.Fatalf("DefaultMemoryWindow = %d, want 5", cfg.DefaultMemoryWindow)
	}
	if cfg.APIKeyPresent() {
		t.Fatalf("APIKeyPresent() = true with empty GROQ_API_KEY")
	}
	if cfg.LLMRequestTimeout != 60*time.Second {
		t.Fatalf("LLMRequestTimeout = %v, want 60s", cfg.LLMRequestTimeout)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("GROQ_API_KEY", "  gsk_test  ")
	t.Setenv("LLM_PROVIDER", "Mock")
	t.Setenv("CHAT_DEFAULT_MEMORY_WINDOW", "12")
	t.Setenv("LLM_REQUEST_TIMEOUT", "5s")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9191" || cfg.GroqAPIKey != "gsk_test" || cfg.LLMProvider != "mock" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.DefaultMemoryWindow != 12 || cfg.LLMRequestTimeout != 5*time.Second || !cfg.AllowAnyOrigin {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"CHAT_DEFAULT_MEMORY_WINDOW":     "16",
		"LLM_PROVIDER":                   "bedrock",
		"APP_SESSION_INACTIVITY_TIMEOUT": "1s",
		"APP_LOG_FORMAT":                 "xml",
		"APP_ALLOW_ANY_ORIGIN":           "maybe",
		"LLM_REQUEST_TIMEOUT":            "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q expected error", key, value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_LOG_LEVEL",
		"APP_LOG_FORMAT",
		"LLM_PROVIDER",
		"GROQ_API_KEY",
		"GROQ_BASE_URL",
		"LLM_REQUEST_TIMEOUT",
		"CHAT_SYSTEM_PROMPT",
		"CHAT_MODELS_FILE",
		"CHAT_DEFAULT_MEMORY_WINDOW",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
