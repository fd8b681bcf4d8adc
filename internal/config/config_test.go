package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Providers) != 1 || cfg.Providers[0].Kind != ProviderEcho {
		t.Errorf("expected a single echo provider by default, got %+v", cfg.Providers)
	}

	if cfg.Routing.Cooldown.Base != 60*time.Second {
		t.Errorf("expected 60s cooldown, got %v", cfg.Routing.Cooldown.Base)
	}

	if cfg.Orchestrator.CapabilityThreshold != 0.6 {
		t.Errorf("expected capability threshold 0.6, got %v", cfg.Orchestrator.CapabilityThreshold)
	}

	if cfg.Tasks.BoardLimit != 50 {
		t.Errorf("expected board limit 50, got %d", cfg.Tasks.BoardLimit)
	}

	if cfg.Scheduler.PollInterval != 30*time.Second {
		t.Errorf("expected poll interval 30s, got %v", cfg.Scheduler.PollInterval)
	}

	if cfg.Scheduler.MaxRetries != 2 {
		t.Errorf("expected scheduler max retries 2, got %d", cfg.Scheduler.MaxRetries)
	}

	if cfg.Scheduler.Backoff.Cap != 30*time.Second {
		t.Errorf("expected backoff cap 30s, got %v", cfg.Scheduler.Backoff.Cap)
	}

	if cfg.Events.RetentionDays != 30 {
		t.Errorf("expected retention 30 days, got %d", cfg.Events.RetentionDays)
	}

	if cfg.Events.Dir == "" || cfg.Procedures.Dir == "" || cfg.Storage.Dir == "" {
		t.Errorf("expected resolved directories, got events=%q procedures=%q storage=%q",
			cfg.Events.Dir, cfg.Procedures.Dir, cfg.Storage.Dir)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
providers:
  - name: primary
    kind: anthropic
    models: [claude-sonnet-4-5-20250929, claude-haiku-4-5-20251001]
    timeout: 45s
  - name: backup
    kind: bedrock
    region: us-west-2
routing:
  default_provider: primary
  fallback_order: [backup]
  cooldown:
    base: 30s
    factor: 2
    cap: 5m
orchestrator:
  capability_threshold: 0.75
  destructive_allowed: true
tasks:
  max_retries: 5
scheduler:
  poll_interval: 10s
storage:
  backend: json
  dir: ` + tmpDir + `
log:
  level: debug
protect:
  patterns: ["**/Taxes/**"]
  file_types: [".ledger"]
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if len(cfg.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(cfg.Providers))
	}
	if cfg.Providers[0].Timeout != 45*time.Second {
		t.Errorf("expected primary timeout 45s, got %v", cfg.Providers[0].Timeout)
	}
	if len(cfg.Providers[0].Models) != 2 {
		t.Errorf("expected 2 models, got %v", cfg.Providers[0].Models)
	}
	if cfg.Providers[1].Kind != ProviderBedrock || cfg.Providers[1].Region != "us-west-2" {
		t.Errorf("unexpected backup provider: %+v", cfg.Providers[1])
	}
	if cfg.Routing.DefaultProvider != "primary" {
		t.Errorf("expected default provider primary, got %q", cfg.Routing.DefaultProvider)
	}
	if cfg.Routing.Cooldown.Cap != 5*time.Minute || cfg.Routing.Cooldown.Factor != 2 {
		t.Errorf("unexpected cooldown policy: %+v", cfg.Routing.Cooldown)
	}
	if cfg.Orchestrator.CapabilityThreshold != 0.75 {
		t.Errorf("expected threshold 0.75, got %v", cfg.Orchestrator.CapabilityThreshold)
	}
	if !cfg.Orchestrator.DestructiveAllowed {
		t.Error("expected destructive_allowed true")
	}
	if cfg.Tasks.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", cfg.Tasks.MaxRetries)
	}
	// Unset values keep their defaults.
	if cfg.Tasks.BoardLimit != 50 {
		t.Errorf("expected default board limit 50, got %d", cfg.Tasks.BoardLimit)
	}
	if cfg.Scheduler.Backoff.Base != time.Second {
		t.Errorf("expected default backoff base 1s, got %v", cfg.Scheduler.Backoff.Base)
	}
	if cfg.Storage.Backend != "json" {
		t.Errorf("expected json backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Events.Dir != filepath.Join(tmpDir, "events") {
		t.Errorf("expected events under storage dir, got %q", cfg.Events.Dir)
	}
	if cfg.DatabasePath() != filepath.Join(tmpDir, "steward.db") {
		t.Errorf("unexpected database path %q", cfg.DatabasePath())
	}
	if len(cfg.Protect.Patterns) != 1 || cfg.Protect.Patterns[0] != "**/Taxes/**" {
		t.Errorf("unexpected protect patterns %v", cfg.Protect.Patterns)
	}
	if len(cfg.Protect.FileTypes) != 1 {
		t.Errorf("unexpected protect file types %v", cfg.Protect.FileTypes)
	}
}

func TestLoadFromPath_ExpandsProviderKeys(t *testing.T) {
	t.Setenv("TEST_STEWARD_KEY", "sk-ant-from-env-123456")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
providers:
  - name: primary
    kind: anthropic
    api_key: ${TEST_STEWARD_KEY}
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Providers[0].APIKey != "sk-ant-from-env-123456" {
		t.Errorf("api key not expanded: %q", cfg.Providers[0].APIKey)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Providers = append(cfg.Providers, ProviderConfig{Name: "primary", Kind: ProviderAnthropic, Timeout: time.Minute})
	cfg.Routing.DefaultProvider = "primary"
	cfg.Tasks.MaxRetries = 7

	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Tasks.MaxRetries != 7 {
		t.Errorf("expected max retries 7, got %d", loaded.Tasks.MaxRetries)
	}
	if len(loaded.Providers) != 2 || loaded.Providers[1].Timeout != time.Minute {
		t.Errorf("providers not round-tripped: %+v", loaded.Providers)
	}
	if loaded.Routing.DefaultProvider != "primary" {
		t.Errorf("expected default provider primary, got %q", loaded.Routing.DefaultProvider)
	}
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".steward.yaml"), []byte("log:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	got := findProjectConfig()
	want := filepath.Join(root, ".steward.yaml")
	gotEval, _ := filepath.EvalSymlinks(got)
	wantEval, _ := filepath.EvalSymlinks(want)
	if gotEval != wantEval {
		t.Errorf("findProjectConfig() = %q, want %q", got, want)
	}
}
