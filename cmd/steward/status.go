package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/steward/internal/config"
	"github.com/ShayCichocki/steward/internal/state"
	"github.com/ShayCichocki/steward/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tasks, jobs and providers at a glance",
	Long: `Display the current state of steward.

Shows:
  - Where configuration and data live
  - Work left over from a previous run
  - Task counts by status
  - The next scheduled jobs
  - Configured providers and loaded procedures`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now()
	bold := color.New(color.Bold)

	bold.Println("Steward")
	cfgPath := config.GetProjectConfigPath()
	if cfgPath == "" {
		cfgPath = config.GetUserConfigPath()
	}
	if configPath != "" {
		cfgPath = configPath
	}
	fmt.Printf("  config:   %s\n", cfgPath)
	fmt.Printf("  storage:  %s\n", describeStorage(a))
	fmt.Printf("  events:   %s\n", a.cfg.Events.Dir)

	info, err := state.CheckRecovery(a.store.Tasks, a.store.Jobs, now)
	if err != nil {
		return fmt.Errorf("check recovery: %w", err)
	}
	if info.HasWork() {
		fmt.Println()
		printStatus("⚠", "Leftover work: "+info.Summary(), color.FgYellow)
	}

	fmt.Println()
	bold.Println("Tasks")
	board := a.tasks.Board()
	for _, s := range models.TaskStatuses {
		fmt.Printf("  %s %d\n", statusColor(s).Sprintf("%-16s", s), board.Counts[s])
	}

	fmt.Println()
	bold.Println("Jobs")
	jobs := a.scheduler.Jobs()
	if len(jobs) == 0 {
		fmt.Println("  none")
	}
	for i, j := range jobs {
		if i == 5 {
			fmt.Printf("  ... %d more (steward job list)\n", len(jobs)-i)
			break
		}
		fmt.Print("  ")
		printJobLine(j)
	}

	fmt.Println()
	bold.Println("Providers")
	for _, h := range a.engine.Status() {
		model := ""
		if len(h.Models) > 0 {
			model = h.Models[0]
		}
		fmt.Printf("  %-16s %s\n", h.Name, color.HiBlackString(model))
	}
	if a.cfg.Routing.DefaultProvider != "" {
		fmt.Printf("  default: %s\n", a.cfg.Routing.DefaultProvider)
	}

	fmt.Println()
	bold.Println("Procedures")
	procs := a.procedures.Procedures()
	if len(procs) == 0 {
		fmt.Printf("  none in %s\n", a.cfg.Procedures.Dir)
	}
	for _, p := range procs {
		fmt.Printf("  %-24s %d step(s)\n", p.Name, len(p.Steps))
	}
	return nil
}

func describeStorage(a *app) string {
	if a.store.DB != nil {
		v, err := a.store.DB.SchemaVersion()
		if err != nil {
			return fmt.Sprintf("%s (%s)", a.store.DB.Path(), a.store.DB.Driver())
		}
		return fmt.Sprintf("%s (%s, schema v%d)", a.store.DB.Path(), a.store.DB.Driver(), v)
	}
	return a.cfg.Storage.Dir + " (json)"
}
