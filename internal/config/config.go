// Package config handles configuration loading and management for steward.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/steward/internal/backoff"
	"github.com/ShayCichocki/steward/internal/protect"
)

// Config holds all configuration for steward.
type Config struct {
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	Providers    []ProviderConfig   `mapstructure:"providers"`
	Routing      RoutingConfig      `mapstructure:"routing"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Tasks        TasksConfig        `mapstructure:"tasks"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Events       EventsConfig       `mapstructure:"events"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Procedures   ProceduresConfig   `mapstructure:"procedures"`
	Log          LogConfig          `mapstructure:"log"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	TUI          TUIConfig          `mapstructure:"tui"`
	// Protect adds paths that deletions always confirm, on top of the built-in list.
	Protect      protect.Rules      `mapstructure:"protect"`
}

// AnthropicConfig holds the shared Anthropic API key used by providers without their own.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ProviderKind selects the backend implementation.
type ProviderKind string

const (
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderBedrock   ProviderKind = "bedrock"
	ProviderEcho      ProviderKind = "echo"
)

// Valid reports whether k names a known backend. Empty means anthropic.
func (k ProviderKind) Valid() bool {
	switch k {
	case "", ProviderAnthropic, ProviderBedrock, ProviderEcho:
		return true
	}
	return false
}

// ProviderConfig describes one generation backend.
type ProviderConfig struct {
	Name      string        `mapstructure:"name"`
	Kind      ProviderKind  `mapstructure:"kind"`
	Models    []string      `mapstructure:"models"`
	APIKey    string        `mapstructure:"api_key"`
	Region    string        `mapstructure:"region"`
	Profile   string        `mapstructure:"profile"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int64         `mapstructure:"max_tokens"`
}

// RoutingConfig controls provider candidate order and cooldown.
type RoutingConfig struct {
	DefaultProvider  string         `mapstructure:"default_provider"`
	RouterPreference string         `mapstructure:"router_preference"`
	FallbackOrder    []string       `mapstructure:"fallback_order"`
	Cooldown         backoff.Policy `mapstructure:"cooldown"`
	Timeout          time.Duration  `mapstructure:"timeout"`
}

// OrchestratorConfig holds request routing settings.
type OrchestratorConfig struct {
	// CapabilityThreshold is the minimum handler score to accept a capability match.
	CapabilityThreshold float64 `mapstructure:"capability_threshold"`
	// QualityCategories lists handler categories whose output is quality checked.
	QualityCategories []string `mapstructure:"quality_categories"`
	// DestructiveAllowed lets destructive intents run without a confirmation round trip.
	DestructiveAllowed bool `mapstructure:"destructive_allowed"`
}

// TasksConfig holds task queue settings.
type TasksConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
	BoardLimit int `mapstructure:"board_limit"`
}

// SchedulerConfig holds scheduler settings.
type SchedulerConfig struct {
	PollInterval time.Duration  `mapstructure:"poll_interval"`
	MaxRetries   int            `mapstructure:"max_retries"`
	Backoff      backoff.Policy `mapstructure:"backoff"`
}

// EventsConfig holds event log settings.
type EventsConfig struct {
	Dir           string `mapstructure:"dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// StorageConfig selects how tasks and jobs are persisted.
type StorageConfig struct {
	// Backend is "sqlite" or "json".
	Backend string `mapstructure:"backend"`
	// Driver is the database/sql driver name: "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `mapstructure:"driver"`
	// Dir holds steward.db or the tasks.json/jobs.json files.
	Dir string `mapstructure:"dir"`
}

// ProceduresConfig holds the procedure definition directory.
type ProceduresConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// File, when set, receives JSON logs instead of the console.
	File string `mapstructure:"file"`
}

// MetricsConfig holds the Prometheus listener address. Empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, STEWARD_*)
// 2. Project config (.steward.yaml in current directory or parent)
// 3. User config (~/.config/steward/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	bindEnv(v)

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("steward")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	for i := range cfg.Providers {
		cfg.Providers[i].APIKey = expandEnv(cfg.Providers[i].APIKey)
	}
	cfg.resolvePaths()

	return cfg, nil
}

// resolvePaths fills directories left empty with locations under the data dir.
func (c *Config) resolvePaths() {
	if c.Storage.Dir == "" {
		c.Storage.Dir = getDataDir()
	}
	if c.Events.Dir == "" {
		c.Events.Dir = filepath.Join(c.Storage.Dir, "events")
	}
	if c.Procedures.Dir == "" {
		c.Procedures.Dir = filepath.Join(getUserConfigDir(), "procedures")
	}
}

// DatabasePath returns the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.Dir, "steward.db")
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("providers", providersToMaps(cfg.Providers))
	v.Set("routing.default_provider", cfg.Routing.DefaultProvider)
	v.Set("routing.router_preference", cfg.Routing.RouterPreference)
	v.Set("routing.fallback_order", cfg.Routing.FallbackOrder)
	v.Set("routing.cooldown.base", cfg.Routing.Cooldown.Base.String())
	v.Set("routing.cooldown.factor", cfg.Routing.Cooldown.Factor)
	v.Set("routing.cooldown.cap", cfg.Routing.Cooldown.Cap.String())
	v.Set("routing.timeout", cfg.Routing.Timeout.String())
	v.Set("orchestrator.capability_threshold", cfg.Orchestrator.CapabilityThreshold)
	v.Set("orchestrator.quality_categories", cfg.Orchestrator.QualityCategories)
	v.Set("orchestrator.destructive_allowed", cfg.Orchestrator.DestructiveAllowed)
	v.Set("tasks.max_retries", cfg.Tasks.MaxRetries)
	v.Set("tasks.board_limit", cfg.Tasks.BoardLimit)
	v.Set("scheduler.poll_interval", cfg.Scheduler.PollInterval.String())
	v.Set("scheduler.max_retries", cfg.Scheduler.MaxRetries)
	v.Set("scheduler.backoff.base", cfg.Scheduler.Backoff.Base.String())
	v.Set("scheduler.backoff.factor", cfg.Scheduler.Backoff.Factor)
	v.Set("scheduler.backoff.cap", cfg.Scheduler.Backoff.Cap.String())
	v.Set("events.dir", cfg.Events.Dir)
	v.Set("events.retention_days", cfg.Events.RetentionDays)
	v.Set("storage.backend", cfg.Storage.Backend)
	v.Set("storage.driver", cfg.Storage.Driver)
	v.Set("storage.dir", cfg.Storage.Dir)
	v.Set("procedures.dir", cfg.Procedures.Dir)
	v.Set("procedures.watch", cfg.Procedures.Watch)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)
	v.Set("metrics.addr", cfg.Metrics.Addr)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())
	if len(cfg.Protect.Patterns) > 0 {
		v.Set("protect.patterns", cfg.Protect.Patterns)
	}
	if len(cfg.Protect.Keywords) > 0 {
		v.Set("protect.keywords", cfg.Protect.Keywords)
	}
	if len(cfg.Protect.FileTypes) > 0 {
		v.Set("protect.file_types", cfg.Protect.FileTypes)
	}

	return v.WriteConfig()
}

func providersToMaps(providers []ProviderConfig) []map[string]any {
	out := make([]map[string]any, 0, len(providers))
	for _, p := range providers {
		m := map[string]any{
			"name": p.Name,
			"kind": string(p.Kind),
		}
		if len(p.Models) > 0 {
			m["models"] = p.Models
		}
		if p.APIKey != "" {
			m["api_key"] = p.APIKey
		}
		if p.Region != "" {
			m["region"] = p.Region
		}
		if p.Profile != "" {
			m["profile"] = p.Profile
		}
		if p.Timeout > 0 {
			m["timeout"] = p.Timeout.String()
		}
		if p.MaxTokens > 0 {
			m["max_tokens"] = p.MaxTokens
		}
		out = append(out, m)
	}
	return out
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetUserConfigDir returns the directory holding the user config and procedures.
func GetUserConfigDir() string {
	return getUserConfigDir()
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")

	v.SetDefault("providers", []map[string]any{
		{"name": "echo", "kind": "echo"},
	})

	v.SetDefault("routing.default_provider", "")
	v.SetDefault("routing.router_preference", "")
	v.SetDefault("routing.fallback_order", []string{})
	v.SetDefault("routing.cooldown.base", "60s")
	v.SetDefault("routing.cooldown.factor", 1.0)
	v.SetDefault("routing.cooldown.cap", "60s")
	v.SetDefault("routing.timeout", "2m")

	v.SetDefault("orchestrator.capability_threshold", 0.6)
	v.SetDefault("orchestrator.quality_categories", []string{"marketing", "sales"})
	v.SetDefault("orchestrator.destructive_allowed", false)

	v.SetDefault("tasks.max_retries", 3)
	v.SetDefault("tasks.board_limit", 50)

	v.SetDefault("scheduler.poll_interval", "30s")
	v.SetDefault("scheduler.max_retries", 2)
	v.SetDefault("scheduler.backoff.base", "1s")
	v.SetDefault("scheduler.backoff.factor", 2.0)
	v.SetDefault("scheduler.backoff.cap", "30s")

	v.SetDefault("events.dir", "")
	v.SetDefault("events.retention_days", 30)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dir", "")

	v.SetDefault("procedures.dir", "")
	v.SetDefault("procedures.watch", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("tui.refresh_rate", "2s")
}

// getUserConfigDir returns the XDG config directory for steward.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "steward")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "steward")
	}
	return filepath.Join(home, ".config", "steward")
}

// getDataDir returns the XDG data directory for steward.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "steward")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "steward")
	}
	return filepath.Join(home, ".local", "share", "steward")
}

// findProjectConfig searches for .steward.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".steward.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	cfg := &Config{
		Providers: []ProviderConfig{
			{Name: "echo", Kind: ProviderEcho},
		},
		Routing: RoutingConfig{
			FallbackOrder: []string{},
			Cooldown:      backoff.Constant(60 * time.Second),
			Timeout:       2 * time.Minute,
		},
		Orchestrator: OrchestratorConfig{
			CapabilityThreshold: 0.6,
			QualityCategories:   []string{"marketing", "sales"},
		},
		Tasks: TasksConfig{
			MaxRetries: 3,
			BoardLimit: 50,
		},
		Scheduler: SchedulerConfig{
			PollInterval: 30 * time.Second,
			MaxRetries:   2,
			Backoff:      backoff.Default(),
		},
		Events: EventsConfig{
			RetentionDays: 30,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Driver:  "sqlite",
		},
		Procedures: ProceduresConfig{
			Watch: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		TUI: TUIConfig{
			RefreshRate: 2 * time.Second,
		},
	}
	cfg.resolvePaths()
	return cfg
}
