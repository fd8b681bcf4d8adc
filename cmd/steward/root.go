package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "steward",
	Short: "Personal automation agent",
	Long: `Steward accepts natural-language requests and decides how to satisfy them:
a direct rule match, a capability plugin, a prerecorded procedure, or a
generated response from the first healthy text-generation provider.

Work that spans more than one step is tracked as tasks, and recurring or
one-time requests run from the scheduler.

With no arguments, opens the watch board.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/steward/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}
