package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearResearchEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RESEARCH_SERVICE_URL", "RESEARCH_ASSISTANT_ID", "RESEARCH_RUN_TIMEOUT",
		"LANGGRAPH_API_KEY", "LANGSMITH_API_KEY", "PORT", "SESSION_TTL", "SESSION_COOKIE",
		"SESSION_COOKIE_SECURE", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("RESEARCH_SECRETS_FILE", filepath.Join(t.TempDir(), "missing.toml"))
}

func TestLoadFromEnv(t *testing.T) {
	clearResearchEnv(t)
	t.Setenv("RESEARCH_SERVICE_URL", "http://graph:2024")
	t.Setenv("RESEARCH_RUN_TIMEOUT", "90")
	t.Setenv("LANGSMITH_API_KEY", "lsv2")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Research.ServiceURL != "http://graph:2024" {
		t.Fatalf("unexpected service URL: %s", cfg.Research.ServiceURL)
	}
	if cfg.Research.AssistantID != "research_assistant" {
		t.Fatalf("unexpected assistant id: %s", cfg.Research.AssistantID)
	}
	if cfg.Research.RunTimeout != 90*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Research.RunTimeout)
	}
	if cfg.Research.APIKey != "lsv2" {
		t.Fatalf("unexpected api key: %s", cfg.Research.APIKey)
	}
	if cfg.Server.Addr != ":9000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Session.TTL != time.Hour || cfg.Session.CookieName != "research_session" {
		t.Fatalf("unexpected session config: %+v", cfg.Session)
	}
	if len(cfg.Server.AllowedOrigins) != 0 {
		t.Fatalf("expected no allowed origins by default, got %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadAllowedOrigins(t *testing.T) {
	clearResearchEnv(t)
	t.Setenv("RESEARCH_SERVICE_URL", "http://graph:2024")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://localhost:5173 , ,https://desk.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	want := []string{"http://localhost:5173", "https://desk.example.com"}
	if len(cfg.Server.AllowedOrigins) != len(want) {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	for i, origin := range want {
		if cfg.Server.AllowedOrigins[i] != origin {
			t.Fatalf("origin %d: got %q want %q", i, cfg.Server.AllowedOrigins[i], origin)
		}
	}
}

func TestLoadRejectsNonPositiveSessionTTL(t *testing.T) {
	clearResearchEnv(t)
	t.Setenv("RESEARCH_SERVICE_URL", "http://graph:2024")
	t.Setenv("SESSION_TTL", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for a zero session TTL")
	}
}

func TestLoadFromSecretsFile(t *testing.T) {
	clearResearchEnv(t)
	path := filepath.Join(t.TempDir(), "secrets.toml")
	if err := os.WriteFile(path, []byte("Service = \"https://graph.example.com\"\n"), 0o600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}
	t.Setenv("RESEARCH_SECRETS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Research.ServiceURL != "https://graph.example.com" {
		t.Fatalf("unexpected service URL: %s", cfg.Research.ServiceURL)
	}
}

func TestLoadRequiresServiceURL(t *testing.T) {
	clearResearchEnv(t)
	if _, err := Load(); !errors.Is(err, ErrServiceURLMissing) {
		t.Fatalf("expected ErrServiceURLMissing, got %v", err)
	}
}

func TestLoadRejectsInvalidTimeout(t *testing.T) {
	clearResearchEnv(t)
	t.Setenv("RESEARCH_SERVICE_URL", "http://graph:2024")
	t.Setenv("RESEARCH_RUN_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid timeout")
	}
}

func TestLoadSecretsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	if err := os.WriteFile(path, []byte("Service = "), 0o600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}
	if _, err := LoadSecrets(path); err == nil {
		t.Fatal("expected parse error")
	}
}
