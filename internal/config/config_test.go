package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("STEWARD_TEST_KEY", "sk-from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "steward.yaml")
	content := `
listen:
  port: 9090
anthropic:
  api_key: ${STEWARD_TEST_KEY}
engine:
  tool_rounds: 3
  history_limit: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Listen.Port != 9090 {
		t.Errorf("Listen.Port = %d, want 9090", cfg.Listen.Port)
	}
	if cfg.Anthropic.APIKey != "sk-from-env" {
		t.Errorf("Anthropic.APIKey = %q, want env expansion", cfg.Anthropic.APIKey)
	}
	if cfg.Engine.ToolRounds != 3 {
		t.Errorf("Engine.ToolRounds = %d, want 3", cfg.Engine.ToolRounds)
	}
	if cfg.Engine.HistoryLimit != 10 {
		t.Errorf("Engine.HistoryLimit = %d, want 10", cfg.Engine.HistoryLimit)
	}
	// Unset fields keep their defaults.
	if cfg.Engine.RoundTimeout() != 60*time.Second {
		t.Errorf("Engine.RoundTimeout = %v, want default 60s", cfg.Engine.RoundTimeout())
	}
	if cfg.RateLimit.PerMinute != 20 {
		t.Errorf("RateLimit.PerMinute = %d, want default 20", cfg.RateLimit.PerMinute)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() on missing file should error")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Engine.ToolRounds != 5 {
		t.Errorf("default ToolRounds = %d, want 5", cfg.Engine.ToolRounds)
	}
	if cfg.Engine.HistoryLimit != 20 {
		t.Errorf("default HistoryLimit = %d, want 20", cfg.Engine.HistoryLimit)
	}
	if cfg.Models.Default == "" {
		t.Error("default model should be set")
	}
}

func TestProviderFor(t *testing.T) {
	cfg := Default()
	if got := cfg.ProviderFor("gpt-4o-mini"); got != "openai" {
		t.Errorf("ProviderFor(gpt-4o-mini) = %q, want openai", got)
	}
	if got := cfg.ProviderFor("some-unknown-model"); got != "anthropic" {
		t.Errorf("ProviderFor(unknown) = %q, want anthropic fallback", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"trace", LevelTrace, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
