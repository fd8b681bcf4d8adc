package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/steward/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify steward configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/steward/config.yaml
Project-specific overrides can be placed in .steward.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		switch len(args) {
		case 0:
			for _, key := range configKeys {
				v, _ := getConfigValue(cfg, key)
				fmt.Printf("%s: %s\n", key, v)
			}
			return nil
		case 1:
			v, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		default:
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("Set %s = %s\n", args[0], args[1])
			return nil
		}
	},
}

// configKeys lists the scalar keys shown by 'steward config', in file order.
var configKeys = []string{
	"anthropic.api_key",
	"routing.default_provider",
	"routing.router_preference",
	"routing.fallback_order",
	"routing.timeout",
	"orchestrator.capability_threshold",
	"orchestrator.quality_categories",
	"orchestrator.destructive_allowed",
	"tasks.max_retries",
	"tasks.board_limit",
	"scheduler.poll_interval",
	"scheduler.max_retries",
	"events.dir",
	"events.retention_days",
	"storage.backend",
	"storage.driver",
	"storage.dir",
	"procedures.dir",
	"procedures.watch",
	"log.level",
	"log.file",
	"metrics.addr",
	"tui.refresh_rate",
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "routing.default_provider":
		return cfg.Routing.DefaultProvider, nil
	case "routing.router_preference":
		return cfg.Routing.RouterPreference, nil
	case "routing.fallback_order":
		return strings.Join(cfg.Routing.FallbackOrder, ","), nil
	case "routing.timeout":
		return cfg.Routing.Timeout.String(), nil
	case "orchestrator.capability_threshold":
		return strconv.FormatFloat(cfg.Orchestrator.CapabilityThreshold, 'g', -1, 64), nil
	case "orchestrator.quality_categories":
		return strings.Join(cfg.Orchestrator.QualityCategories, ","), nil
	case "orchestrator.destructive_allowed":
		return strconv.FormatBool(cfg.Orchestrator.DestructiveAllowed), nil
	case "tasks.max_retries":
		return strconv.Itoa(cfg.Tasks.MaxRetries), nil
	case "tasks.board_limit":
		return strconv.Itoa(cfg.Tasks.BoardLimit), nil
	case "scheduler.poll_interval":
		return cfg.Scheduler.PollInterval.String(), nil
	case "scheduler.max_retries":
		return strconv.Itoa(cfg.Scheduler.MaxRetries), nil
	case "events.dir":
		return cfg.Events.Dir, nil
	case "events.retention_days":
		return strconv.Itoa(cfg.Events.RetentionDays), nil
	case "storage.backend":
		return cfg.Storage.Backend, nil
	case "storage.driver":
		return cfg.Storage.Driver, nil
	case "storage.dir":
		return cfg.Storage.Dir, nil
	case "procedures.dir":
		return cfg.Procedures.Dir, nil
	case "procedures.watch":
		return strconv.FormatBool(cfg.Procedures.Watch), nil
	case "log.level":
		return cfg.Log.Level, nil
	case "log.file":
		return cfg.Log.File, nil
	case "metrics.addr":
		return cfg.Metrics.Addr, nil
	case "tui.refresh_rate":
		return cfg.TUI.RefreshRate.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if err := config.ValidateAPIKey(value); err != nil {
			return err
		}
		cfg.Anthropic.APIKey = value
	case "routing.default_provider":
		cfg.Routing.DefaultProvider = value
	case "routing.router_preference":
		cfg.Routing.RouterPreference = value
	case "routing.fallback_order":
		cfg.Routing.FallbackOrder = splitList(value)
	case "routing.timeout":
		return setDuration(&cfg.Routing.Timeout, key, value)
	case "orchestrator.capability_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("invalid value for %s: want a number in [0,1]", key)
		}
		cfg.Orchestrator.CapabilityThreshold = f
	case "orchestrator.quality_categories":
		cfg.Orchestrator.QualityCategories = splitList(value)
	case "orchestrator.destructive_allowed":
		return setBool(&cfg.Orchestrator.DestructiveAllowed, key, value)
	case "tasks.max_retries":
		return setInt(&cfg.Tasks.MaxRetries, key, value)
	case "tasks.board_limit":
		return setInt(&cfg.Tasks.BoardLimit, key, value)
	case "scheduler.poll_interval":
		return setDuration(&cfg.Scheduler.PollInterval, key, value)
	case "scheduler.max_retries":
		return setInt(&cfg.Scheduler.MaxRetries, key, value)
	case "events.dir":
		cfg.Events.Dir = value
	case "events.retention_days":
		return setInt(&cfg.Events.RetentionDays, key, value)
	case "storage.backend":
		if value != "sqlite" && value != "json" {
			return fmt.Errorf("invalid value for %s: want sqlite or json", key)
		}
		cfg.Storage.Backend = value
	case "storage.driver":
		if value != "sqlite" && value != "sqlite3" {
			return fmt.Errorf("invalid value for %s: want sqlite or sqlite3", key)
		}
		cfg.Storage.Driver = value
	case "storage.dir":
		cfg.Storage.Dir = value
	case "procedures.dir":
		cfg.Procedures.Dir = value
	case "procedures.watch":
		return setBool(&cfg.Procedures.Watch, key, value)
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "metrics.addr":
		cfg.Metrics.Addr = value
	case "tui.refresh_rate":
		return setDuration(&cfg.TUI.RefreshRate, key, value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func setDuration(dst *time.Duration, key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
