package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/steward/pkg/models"
)

var (
	jobName  string
	jobEvery time.Duration
	jobDaily string
	jobCron  string
	jobAt    string
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage scheduled jobs",
	Long: `Manage jobs fired by 'steward serve'.

A job's command is routed exactly like a request typed to 'steward ask'.
Jobs added here are picked up the next time serve starts.`,
}

var jobAddCmd = &cobra.Command{
	Use:   "add <command...>",
	Short: "Schedule a command",
	Long: `Schedule a command. Exactly one of --every, --daily, --cron or --at is required.

Examples:
  steward job add --every 30m check the build
  steward job add --daily 09:00 "reminder: stand-up"
  steward job add --cron "0 18 * * 1-5" summarize the day
  steward job add --at 2026-11-02T08:00:00Z "reminder: renew passport"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runJobAdd,
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobList,
}

var jobRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a job",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.scheduler.RemoveJob(args[0]); err != nil {
			return err
		}
		printStatus("✓", "Removed job "+args[0], color.FgGreen)
		return nil
	},
}

var jobPauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "Stop a job from firing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		j, err := a.scheduler.PauseJob(args[0])
		if err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("Paused %s (%s)", j.ID, j.Name), color.FgGreen)
		return nil
	},
}

var jobResumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume a paused job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		j, err := a.scheduler.ResumeJob(args[0])
		if err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("Resumed %s, next fire %s", j.ID, j.NextFire.Local().Format(time.RFC1123)), color.FgGreen)
		return nil
	},
}

func init() {
	jobAddCmd.Flags().StringVar(&jobName, "name", "", "Display name (defaults to the command)")
	jobAddCmd.Flags().DurationVar(&jobEvery, "every", 0, "Fire on a fixed interval, e.g. 15m")
	jobAddCmd.Flags().StringVar(&jobDaily, "daily", "", "Fire every day at HH:MM local time")
	jobAddCmd.Flags().StringVar(&jobCron, "cron", "", "Fire on a standard 5-field cron expression")
	jobAddCmd.Flags().StringVar(&jobAt, "at", "", "Fire once at an RFC 3339 time")

	jobCmd.AddCommand(jobAddCmd, jobListCmd, jobRemoveCmd, jobPauseCmd, jobResumeCmd)
}

// buildJob turns the add flags into an unsaved job.
func buildJob(command string) (models.Job, error) {
	job := models.Job{Name: jobName, Command: command}
	if job.Name == "" {
		job.Name = command
	}

	set := 0
	if jobEvery > 0 {
		job.Kind, job.Interval = models.JobInterval, jobEvery
		set++
	}
	if jobDaily != "" {
		job.Kind, job.TimeOfDay = models.JobDaily, jobDaily
		set++
	}
	if jobCron != "" {
		job.Kind, job.CronExpr = models.JobCron, jobCron
		set++
	}
	if jobAt != "" {
		at, err := time.Parse(time.RFC3339, jobAt)
		if err != nil {
			return job, fmt.Errorf("invalid --at: %w", err)
		}
		job.Kind, job.RunAt = models.JobOnce, at
		set++
	}

	switch set {
	case 0:
		return job, errors.New("one of --every, --daily, --cron or --at is required")
	case 1:
		return job, nil
	default:
		return job, errors.New("--every, --daily, --cron and --at are mutually exclusive")
	}
}

func runJobAdd(cmd *cobra.Command, args []string) error {
	job, err := buildJob(strings.Join(args, " "))
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	saved, err := a.scheduler.AddJob(job)
	if err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("Scheduled %s %q %s", saved.ID, saved.Name, saved.Schedule()), color.FgGreen)
	fmt.Printf("  next fire: %s\n", saved.NextFire.Local().Format(time.RFC1123))
	return nil
}

func runJobList(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	jobs := a.scheduler.Jobs()
	if len(jobs) == 0 {
		fmt.Println("No scheduled jobs.")
		return nil
	}
	for _, j := range jobs {
		printJobLine(j)
	}
	return nil
}

func printJobLine(j models.Job) {
	state := color.GreenString("on ")
	next := j.NextFire.Local().Format("Mon 15:04")
	if !j.Enabled {
		state = color.HiBlackString("off")
		next = "-"
	}
	fmt.Printf("%s %s  %-28s %-24s next %-10s fired %d\n", state, j.ID, j.Name, j.Schedule(), next, j.FireCount)
	if j.LastError != "" {
		fmt.Printf("    %s\n", color.RedString("last error: "+j.LastError))
	}
}
