package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ent0n29/chatassistant/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		LLMProvider:              "mock",
		SessionInactivityTimeout: time.Minute,
		LLMRequestTimeout:        time.Second,
		DefaultMemoryWindow:      3,
		MetricsNamespace:         "test_app_" + time.Now().Format("150405") + "_" + filepath.Base(t.Name()),
	}
}

func TestBuildWiresSessionsWithDefaults(t *testing.T) {
	built, err := Build(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	s := built.Sessions.Create()
	state, err := built.Sessions.State(s.ID)
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if got := state.Settings(); got.Model != "llama-3.1-8b-instant" || got.MemoryWindow != 3 {
		t.Fatalf("Settings() = %+v, want llama-3.1-8b-instant/3", got)
	}

	if err := built.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if n := built.Sessions.ActiveCount(); n != 0 {
		t.Fatalf("ActiveCount() after cleanup = %d, want 0", n)
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	doc := "models:\n  - id: custom-model\n    description: Local test model\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg := testConfig(t)
	cfg.ModelsFile = path
	models, err := LoadCatalog(cfg)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if got := models.DefaultModel().ID; got != "custom-model" {
		t.Fatalf("DefaultModel() = %q, want custom-model", got)
	}

	cfg.ModelsFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := LoadCatalog(cfg); err == nil {
		t.Fatalf("LoadCatalog() expected error for missing file")
	}
}
