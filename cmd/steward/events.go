package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/steward/internal/eventlog"
	"github.com/ShayCichocki/steward/pkg/models"
)

var (
	eventsDay   string
	eventsType  string
	eventsTask  string
	eventsLimit int
	eventsDays  bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Read the event log",
	Long: `Read one day of the event log, oldest first.

Examples:
  steward events                       # today
  steward events --day 2026-10-18 --type provider_failure
  steward events --task 3f2a9c1d
  steward events --days                # list available days`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsDay, "day", "", "Day to read (YYYY-MM-DD, default today)")
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "Only this event type")
	eventsCmd.Flags().StringVar(&eventsTask, "task", "", "Only events about this task")
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 50, "Most recent N events (0 = all)")
	eventsCmd.Flags().BoolVar(&eventsDays, "days", false, "List days with events")
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := eventlog.Open(cfg.Events.Dir)
	if err != nil {
		return err
	}

	if eventsDays {
		days, err := log.Days()
		if err != nil {
			return err
		}
		for _, d := range days {
			fmt.Println(d.Format("2006-01-02"))
		}
		return nil
	}

	opts := eventlog.QueryOpts{
		Type:   models.EventType(eventsType),
		TaskID: eventsTask,
		Limit:  eventsLimit,
	}
	if eventsDay != "" {
		opts.Day, err = time.ParseInLocation("2006-01-02", eventsDay, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --day: %w", err)
		}
	}

	events, err := log.Query(opts)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No events.")
		return nil
	}
	for _, e := range events {
		printEvent(e)
	}
	return nil
}
