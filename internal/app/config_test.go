package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/vulnprobe/internal/injector"
)

// ─── Defaults ──────────────────────────────────────────────────────────

func TestDefaultConfig_Values(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	if cfg.Scanner.MaxDepth != 2 || cfg.Scanner.MaxPages != 50 || cfg.Scanner.Workers != 8 {
		t.Errorf("unexpected scanner defaults: %+v", cfg.Scanner)
	}
	if cfg.WebClient.Timeout != 10*time.Second || cfg.WebClient.MaxRetries != 2 {
		t.Errorf("unexpected webclient defaults: %+v", cfg.WebClient)
	}
	if cfg.ReportPath != "report.json" {
		t.Errorf("ReportPath = %q", cfg.ReportPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// ─── YAML ──────────────────────────────────────────────────────────────

func TestLoadConfig_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vulnprobe.yaml")
	data := `
scanner:
  workers: 3
  max_pages: 12
  strategy: replace
  anomaly_threshold: 300
webclient:
  timeout: 4s
  max_retries: 0
server:
  addr: "127.0.0.1:9000"
log_level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Scanner.Workers != 3 || cfg.Scanner.MaxPages != 12 {
		t.Errorf("scanner not loaded: %+v", cfg.Scanner)
	}
	if cfg.Scanner.Strategy != injector.Replace || cfg.Scanner.AnomalyThreshold != 300 {
		t.Errorf("injection settings not loaded: strategy=%v threshold=%d", cfg.Scanner.Strategy, cfg.Scanner.AnomalyThreshold)
	}
	if cfg.Scanner.MaxDepth != 2 {
		t.Errorf("unset field should keep default, got depth %d", cfg.Scanner.MaxDepth)
	}
	if cfg.WebClient.Timeout != 4*time.Second || cfg.WebClient.MaxRetries != 0 {
		t.Errorf("webclient not loaded: %+v", cfg.WebClient)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.LogLevel != "debug" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("log_level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "log_level") {
		t.Fatalf("expected log_level error, got %v", err)
	}
}

func TestLoadConfig_RejectsUnknownStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("scanner:\n  strategy: prepend\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "prepend") {
		t.Fatalf("expected strategy error, got %v", err)
	}
}

// ─── Environment ───────────────────────────────────────────────────────

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv("VULNPROBE_WORKERS", "16")
	t.Setenv("VULNPROBE_MAX_PAGES", "7")
	t.Setenv("VULNPROBE_DEPTH", "3")
	t.Setenv("VULNPROBE_TIMEOUT", "30")
	t.Setenv("VULNPROBE_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Scanner.Workers != 16 || cfg.Scanner.MaxPages != 7 || cfg.Scanner.MaxDepth != 3 {
		t.Errorf("scanner overrides not applied: %+v", cfg.Scanner)
	}
	if cfg.WebClient.Timeout != 30*time.Second {
		t.Errorf("timeout = %s, want 30s", cfg.WebClient.Timeout)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestApplyEnv_IgnoresMalformed(t *testing.T) {
	t.Setenv("VULNPROBE_WORKERS", "many")
	t.Setenv("VULNPROBE_TIMEOUT", "soon")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Scanner.Workers != 8 {
		t.Errorf("workers = %d, want default 8", cfg.Scanner.Workers)
	}
	if cfg.WebClient.Timeout != 10*time.Second {
		t.Errorf("timeout = %s, want default", cfg.WebClient.Timeout)
	}
}

// ─── Validate ──────────────────────────────────────────────────────────

func TestValidate_Errors(t *testing.T) {
	t.Parallel()
	cases := map[string]func(*Config){
		"workers":    func(c *Config) { c.Scanner.Workers = -1 },
		"max_pages":  func(c *Config) { c.Scanner.MaxPages = -1 },
		"similarity": func(c *Config) { c.Scanner.SimilarityThreshold = 1.5 },
		"retries":    func(c *Config) { c.WebClient.MaxRetries = -2 },
		"burst":      func(c *Config) { c.Server.SubmitBurst = -1 },
		"log_level":  func(c *Config) { c.LogLevel = "chatty" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
