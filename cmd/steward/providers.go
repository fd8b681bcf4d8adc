package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/steward/internal/config"
	"github.com/ShayCichocki/steward/internal/provider"
)

var providersProbe bool

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers",
	Long: `List the configured text-generation providers in candidate order.

With --probe, sends a short prompt to each provider in turn and reports
which ones answer. Probing spends tokens on paid providers.`,
	Args: cobra.NoArgs,
	RunE: runProviders,
}

func init() {
	providersCmd.Flags().BoolVar(&providersProbe, "probe", false, "Send a test prompt to each provider")
}

func runProviders(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	for _, pc := range a.cfg.Providers {
		key, source := config.ResolveAPIKey(a.cfg, pc)
		keyInfo := ""
		if pc.Kind == config.ProviderAnthropic || pc.Kind == "" {
			keyInfo = fmt.Sprintf("key %s (%s)", config.MaskAPIKey(key), source)
		}
		fmt.Printf("%-16s %-10s %s\n", pc.Name, pc.Kind, color.HiBlackString(keyInfo))
	}

	if !providersProbe {
		return nil
	}

	fmt.Println()
	for _, name := range a.engine.Names() {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		resp, err := a.engine.Send(ctx, provider.Request{Prompt: "Reply with the single word: ready", MaxTokens: 16},
			provider.SendOptions{Preferred: name})
		cancel()
		switch {
		case err != nil:
			printStatus("✗", fmt.Sprintf("%s: %v", name, err), color.FgRed)
		case resp.Provider != name:
			printStatus("⚠", fmt.Sprintf("%s: skipped, answered by %s", name, resp.Provider), color.FgYellow)
		default:
			printStatus("✓", fmt.Sprintf("%s (%s) in %s", name, resp.Model, resp.Duration.Round(time.Millisecond)), color.FgGreen)
		}
	}
	return nil
}
