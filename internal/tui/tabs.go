package tui

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/steward/pkg/models"
)

// Views, in tab order. The number keys 1-4 select them.
const (
	TabIndexBoard = iota
	TabIndexJobs
	TabIndexEvents
	TabIndexProviders
	tabCount
)

var tabTitles = [tabCount]string{"Board", "Jobs", "Events", "Providers"}

// tabBadge is the figure shown next to a tab title. Alert marks something
// that needs a look: tasks awaiting confirmation or failed, jobs whose last
// fire errored, high-risk events, providers that cannot be used right now.
type tabBadge struct {
	count int
	alert bool
}

var (
	tabActiveStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Background(lipgloss.Color("236")).Padding(0, 2)
	tabInactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 2)
	tabAlertStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	tabBarStyle      = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("238"))
)

// TabBar switches between the views and summarizes each one with a badge.
type TabBar struct {
	active int
	badges [tabCount]tabBadge
}

// NewTabBar returns a bar on the board view with empty badges.
func NewTabBar() TabBar {
	return TabBar{active: TabIndexBoard}
}

// Update handles tab, shift+tab, the arrow keys and the number keys.
func (t TabBar) Update(msg tea.Msg) (TabBar, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return t, nil
	}
	switch s := key.String(); s {
	case "tab", "right", "l":
		t.active = (t.active + 1) % tabCount
	case "shift+tab", "left", "h":
		t.active = (t.active - 1 + tabCount) % tabCount
	default:
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= tabCount {
			t.active = n - 1
		}
	}
	return t, nil
}

// Summarize refreshes the badges from a snapshot.
func (t *TabBar) Summarize(snap Snapshot) {
	b := snap.Board.Counts
	t.badges[TabIndexBoard] = tabBadge{
		count: b[models.TaskStatusPending] + b[models.TaskStatusInProgress] + b[models.TaskStatusWaitingConfirm],
		alert: b[models.TaskStatusWaitingConfirm] > 0 || b[models.TaskStatusFailed] > 0,
	}

	jobs := tabBadge{}
	for _, j := range snap.Jobs {
		if j.Enabled {
			jobs.count++
		}
		if j.LastError != "" {
			jobs.alert = true
		}
	}
	t.badges[TabIndexJobs] = jobs

	events := tabBadge{count: len(snap.Events)}
	for _, e := range snap.Events {
		if e.Risk == models.RiskHigh {
			events.alert = true
			break
		}
	}
	t.badges[TabIndexEvents] = events

	providers := tabBadge{}
	for _, h := range snap.Providers {
		if h.Selectable(snap.TakenAt) {
			providers.count++
		} else {
			providers.alert = true
		}
	}
	t.badges[TabIndexProviders] = providers
}

// View renders "1 Board (3)" style labels; alerting badges get a marker.
func (t TabBar) View() string {
	rendered := make([]string, 0, tabCount)
	for i := 0; i < tabCount; i++ {
		rendered = append(rendered, t.label(i))
	}
	return tabBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
}

func (t TabBar) label(i int) string {
	b := t.badges[i]
	badge := fmt.Sprintf("(%d)", b.count)
	if b.alert {
		badge = tabAlertStyle.Render(badge + "!")
	}
	text := fmt.Sprintf("%d %s %s", i+1, tabTitles[i], badge)
	if i == t.active {
		return tabActiveStyle.Render(text)
	}
	return tabInactiveStyle.Render(text)
}

// SetActive selects a view by index, clamped to the valid range.
func (t *TabBar) SetActive(index int) {
	t.active = max(0, min(index, tabCount-1))
}

// Active returns the selected view index.
func (t TabBar) Active() int {
	return t.active
}

// Tabs returns the view titles in order.
func (t TabBar) Tabs() []string {
	return tabTitles[:]
}
