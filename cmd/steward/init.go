package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/steward/internal/config"
	"github.com/ShayCichocki/steward/internal/procedure"
	"github.com/ShayCichocki/steward/internal/state"
)

var (
	initForce     bool
	initNoSample  bool
	initBackend   string
	initAnthropic bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the steward config, data and procedure directories",
	Long: `Set up steward for the current user.

This command:
  - Writes ~/.config/steward/config.yaml with defaults
  - Creates the data directory and migrates the task/job store
  - Creates the procedures directory with a sample procedure
  - Checks whether an Anthropic API key is available

Examples:
  steward init                  # echo provider only, works offline
  steward init --anthropic      # add an Anthropic provider using ANTHROPIC_API_KEY
  steward init --backend json   # keep tasks and jobs in JSON files
  steward init --force          # overwrite an existing config`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	initCmd.Flags().BoolVar(&initNoSample, "no-sample", false, "Skip the sample procedure")
	initCmd.Flags().StringVar(&initBackend, "backend", "sqlite", "Storage backend: sqlite or json")
	initCmd.Flags().BoolVar(&initAnthropic, "anthropic", false, "Configure an Anthropic provider ahead of echo")
}

const sampleProcedure = `name: launch-campaign
description: Draft the pieces of a small product launch
triggers:
  - 'launch (?:a )?campaign for (?P<product>[\w -]+?)(?: targeting (?P<audience>[\w -]+))?$'
steps:
  - action: generate
    template: "Write a one-paragraph positioning statement for {product}"
    category: marketing
  - action: generate
    template: "Write a launch email for {product} aimed at {audience}"
    category: marketing
    when: audience
  - action: generate
    template: "Write a launch email for {product}"
    category: marketing
    when: "!audience"
  - action: schedule
    template: "remind me in 2 hours to review the {product} launch copy"
    category: scheduling
`

func runInit(cmd *cobra.Command, args []string) error {
	if initBackend != state.BackendSQLite && initBackend != state.BackendJSON {
		return fmt.Errorf("unknown backend %q", initBackend)
	}

	cfgPath := config.GetUserConfigPath()
	fmt.Printf("Initializing steward in %s...\n\n", filepath.Dir(cfgPath))

	cfg := config.Default()
	if _, err := os.Stat(cfgPath); err == nil && !initForce {
		printStatus("⚠", "Config exists, keeping it (use --force to overwrite)", color.FgYellow)
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load existing config: %w", err)
		}
		cfg = loaded
	} else {
		cfg.Storage.Backend = initBackend
		if initAnthropic {
			cfg.Providers = append([]config.ProviderConfig{{
				Name:   "anthropic",
				Kind:   config.ProviderAnthropic,
				Models: []string{"claude-sonnet-4-5", "claude-haiku-4-5"},
			}}, cfg.Providers...)
			cfg.Routing.DefaultProvider = "anthropic"
			cfg.Routing.FallbackOrder = []string{"echo"}
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		printStatus("✓", "Wrote "+cfgPath, color.FgGreen)
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	store, err := state.OpenStore(cfg.Storage.Backend, cfg.Storage.Driver, cfg.Storage.Dir, cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	store.Close()
	printStatus("✓", fmt.Sprintf("Store ready in %s (%s)", cfg.Storage.Dir, cfg.Storage.Backend), color.FgGreen)

	if err := os.MkdirAll(cfg.Procedures.Dir, 0755); err != nil {
		return fmt.Errorf("create procedures dir: %w", err)
	}
	if !initNoSample {
		if err := writeSampleProcedure(cfg.Procedures.Dir); err != nil {
			return err
		}
	}
	printStatus("✓", "Procedures in "+cfg.Procedures.Dir, color.FgGreen)

	needsKey := false
	for _, pc := range cfg.Providers {
		if pc.Kind == config.ProviderAnthropic || pc.Kind == "" {
			needsKey = true
			if key, _ := config.ResolveAPIKey(cfg, pc); key == "" {
				printStatus("⚠", fmt.Sprintf("No API key for provider %s (set ANTHROPIC_API_KEY)", pc.Name), color.FgYellow)
			}
		}
	}
	if !needsKey {
		printStatus("⚠", "Only offline providers configured; answers are echoed back", color.FgYellow)
	}

	fmt.Printf("\n%s steward is ready. Try: steward ask \"create folder ~/steward-demo\"\n", color.GreenString("✓"))
	return nil
}

func writeSampleProcedure(dir string) error {
	path := filepath.Join(dir, "launch-campaign.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if _, err := procedure.Parse([]byte(sampleProcedure), path); err != nil {
		return fmt.Errorf("sample procedure: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleProcedure), 0644); err != nil {
		return fmt.Errorf("write sample procedure: %w", err)
	}
	return nil
}
