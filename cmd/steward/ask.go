package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askProvider string

var askCmd = &cobra.Command{
	Use:   "ask <request...>",
	Short: "Route one request and print the result",
	Long: `Route a natural-language request through steward.

The request is tried against the built-in intent rules first, then the
capability plugins, then the procedure library, and finally sent to the
provider chain for a generated answer.

Examples:
  steward ask open safari
  steward ask "create folder ~/Projects/demo"
  steward ask "remind me every day at 09:00 to check the inbox"
  steward ask --provider anthropic "summarize the plan for tomorrow"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askProvider, "provider", "", "Try this provider first")
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	out, err := a.handle(ctx, strings.Join(args, " "), "cli", askProvider)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	writeOutcome(os.Stdout, out)
	return nil
}

// askFunc adapts the app for the watch view input line.
func askFunc(a *app) func(ctx context.Context, text string) (string, error) {
	return func(ctx context.Context, text string) (string, error) {
		out, err := a.handle(ctx, text, "tui", "")
		if err != nil {
			return "", err
		}
		if out.Action == nil {
			return "", nil
		}
		if out.TaskID != "" {
			return "[task " + out.TaskID + "] " + out.Action.Message, nil
		}
		return out.Action.Message, nil
	}
}
