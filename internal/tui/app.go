package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/steward/internal/provider"
	"github.com/ShayCichocki/steward/internal/taskqueue"
	"github.com/ShayCichocki/steward/pkg/models"
)

// Snapshot is everything one frame shows.
type Snapshot struct {
	Board     taskqueue.Board
	Jobs      []models.Job
	Events    []models.Event
	Providers []provider.Health
	TakenAt   time.Time
}

// SnapshotFunc loads a fresh Snapshot.
type SnapshotFunc func() (Snapshot, error)

// AskFunc handles a request typed into the input line and returns the reply.
type AskFunc func(ctx context.Context, text string) (string, error)

type tickMsg time.Time

type snapshotMsg struct {
	snap Snapshot
	err  error
}

type answerMsg struct {
	question string
	reply    string
	err      error
}

// App is the bubbletea model for the watch view.
type App struct {
	snapshot SnapshotFunc
	ask      AskFunc
	refresh  time.Duration

	tabs   TabBar
	input  *InputField
	width  int
	height int

	snap     Snapshot
	loadErr  error
	status   string
	statusOK bool
	asking   bool
	quitting bool
}

// NewApp creates the watch model. ask may be nil to disable the input line.
func NewApp(snapshot SnapshotFunc, ask AskFunc, refresh time.Duration) *App {
	if refresh <= 0 {
		refresh = 2 * time.Second
	}
	return &App{
		snapshot: snapshot,
		ask:      ask,
		refresh:  refresh,
		tabs:     NewTabBar(),
		input:    NewInputField(),
		width:    100,
		height:   30,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.load(), a.tick())
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (a *App) load() tea.Cmd {
	return func() tea.Msg {
		snap, err := a.snapshot()
		return snapshotMsg{snap: snap, err: err}
	}
}

func (a *App) submit(text string) tea.Cmd {
	ask := a.ask
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		reply, err := ask(ctx, text)
		return answerMsg{question: text, reply: reply, err: err}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.input.SetWidth(msg.Width)
		return a, nil

	case tickMsg:
		return a, tea.Batch(a.load(), a.tick())

	case snapshotMsg:
		a.loadErr = msg.err
		if msg.err == nil {
			a.snap = msg.snap
			a.tabs.Summarize(msg.snap)
		}
		return a, nil

	case RequestSubmittedMsg:
		if a.ask == nil || a.asking {
			return a, nil
		}
		a.asking = true
		a.setStatus("asking: "+msg.Text, true)
		return a, a.submit(msg.Text)

	case answerMsg:
		a.asking = false
		if msg.err != nil {
			a.setStatus("error: "+msg.err.Error(), false)
		} else {
			a.setStatus(firstLine(msg.reply), true)
		}
		return a, a.load()

	case tea.KeyMsg:
		if a.input.Focused() {
			switch msg.String() {
			case "ctrl+c":
				a.quitting = true
				return a, tea.Quit
			case "esc":
				a.input.Blur()
				return a, nil
			}
			var cmd tea.Cmd
			a.input, cmd = a.input.Update(msg)
			return a, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		case "/":
			if a.ask != nil {
				return a, a.input.Focus()
			}
			return a, nil
		case "r":
			return a, a.load()
		}
		var cmd tea.Cmd
		a.tabs, cmd = a.tabs.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) setStatus(text string, ok bool) {
	a.status = text
	a.statusOK = ok
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	header := a.header()
	var body string
	switch a.tabs.Active() {
	case TabIndexBoard:
		rows := a.height - 12
		body = renderBoard(a.snap.Board, a.width, rows)
	case TabIndexJobs:
		body = renderJobs(a.snap.Jobs, a.now())
	case TabIndexEvents:
		body = renderEvents(a.snap.Events, a.width)
	case TabIndexProviders:
		body = renderProviders(a.snap.Providers, a.now())
	}

	parts := []string{header, a.tabs.View(), body}
	if a.ask != nil {
		parts = append(parts, a.input.View())
	}
	parts = append(parts, a.footer())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) now() time.Time {
	if a.snap.TakenAt.IsZero() {
		return time.Now()
	}
	return a.snap.TakenAt
}

func (a *App) header() string {
	counts := a.snap.Board.Counts
	active := counts[models.TaskStatusPending] + counts[models.TaskStatusInProgress] + counts[models.TaskStatusWaitingConfirm]
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#45B7D1")).Render("steward")
	stats := dimStyle.Render(fmt.Sprintf("  %d active task(s)  %d job(s)", active, len(a.snap.Jobs)))
	if !a.snap.TakenAt.IsZero() {
		stats += dimStyle.Render("  updated " + a.snap.TakenAt.Local().Format("15:04:05"))
	}
	return title + stats
}

func (a *App) footer() string {
	hints := dimStyle.Render("tab/1-4 switch  r refresh  q quit")
	if a.ask != nil {
		hints = dimStyle.Render("/ ask  esc cancel  ") + hints
	}
	var line string
	switch {
	case a.loadErr != nil:
		line = statusStyles[models.TaskStatusFailed].Render("refresh failed: " + a.loadErr.Error())
	case a.status != "":
		style := statusStyles[models.TaskStatusDone]
		if !a.statusOK {
			style = statusStyles[models.TaskStatusFailed]
		}
		line = style.Render(truncateText(a.status, a.width-2))
	}
	if line == "" {
		return hints
	}
	return line + "\n" + hints
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
