package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/steward/internal/eventlog"
	"github.com/ShayCichocki/steward/internal/state"
	"github.com/ShayCichocki/steward/internal/taskqueue"
	"github.com/ShayCichocki/steward/internal/tui"
	"github.com/ShayCichocki/steward/pkg/models"
)

var watchReadOnly bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live task board",
	Long: `Open a full-screen board of tasks, jobs, today's events and provider health.

The board re-reads the store on every refresh, so it follows a 'steward serve'
running in another terminal. Press / to type a request, tab or 1-4 to switch
views, and q to quit.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchReadOnly, "read-only", false, "Disable the request input line")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var ask tui.AskFunc
	if !watchReadOnly {
		ask = askFunc(a)
	}
	model := tui.NewApp(a.snapshot, ask, a.cfg.TUI.RefreshRate)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// snapshot reads the persisted state afresh. The JSON backend caches file
// contents per store, so it gets new file handles on each call.
func (a *app) snapshot() (tui.Snapshot, error) {
	tasks, jobs := a.store.Tasks, a.store.Jobs
	if a.store.DB == nil {
		tasks = state.NewJSONTaskFile(filepath.Join(a.cfg.Storage.Dir, "tasks.json"))
		jobs = state.NewJSONJobFile(filepath.Join(a.cfg.Storage.Dir, "jobs.json"))
	}

	q, err := taskqueue.New(tasks, taskqueue.WithBoardLimit(a.cfg.Tasks.BoardLimit))
	if err != nil {
		return tui.Snapshot{}, err
	}
	jobList, err := jobs.LoadJobs()
	if err != nil {
		return tui.Snapshot{}, err
	}
	sortJobs(jobList)

	events, err := a.events.Query(eventlog.QueryOpts{Limit: 200})
	if err != nil {
		return tui.Snapshot{}, err
	}

	return tui.Snapshot{
		Board:     q.Board(),
		Jobs:      jobList,
		Events:    events,
		Providers: a.engine.Status(),
		TakenAt:   time.Now(),
	}, nil
}

// sortJobs puts enabled jobs first, soonest first.
func sortJobs(jobs []models.Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Enabled != jobs[j].Enabled {
			return jobs[i].Enabled
		}
		return jobs[i].NextFire.Before(jobs[j].NextFire)
	})
}
