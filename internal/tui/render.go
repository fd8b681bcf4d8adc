package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/steward/internal/provider"
	"github.com/ShayCichocki/steward/internal/taskqueue"
	"github.com/ShayCichocki/steward/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	childStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)

	statusStyles = map[models.TaskStatus]lipgloss.Style{
		models.TaskStatusPending:        lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		models.TaskStatusInProgress:     lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		models.TaskStatusWaitingConfirm: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.TaskStatusDone:           lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
		models.TaskStatusFailed:         lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.TaskStatusCancelled:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}

	riskStyles = map[models.RiskLevel]lipgloss.Style{
		models.RiskLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		models.RiskMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.RiskHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

// statusIcon returns the glyph shown before a task.
func statusIcon(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusInProgress:
		return "●"
	case models.TaskStatusWaitingConfirm:
		return "?"
	case models.TaskStatusDone:
		return "✓"
	case models.TaskStatusFailed:
		return "✗"
	case models.TaskStatusCancelled:
		return "-"
	default:
		return "○"
	}
}

// renderBoard lays the active columns out side by side; finished columns
// are summarized on one line underneath.
func renderBoard(board taskqueue.Board, width, rows int) string {
	active := []models.TaskStatus{
		models.TaskStatusPending,
		models.TaskStatusInProgress,
		models.TaskStatusWaitingConfirm,
		models.TaskStatusFailed,
	}
	colWidth := width/len(active) - 2
	if colWidth < 16 {
		colWidth = 16
	}

	cols := make([]string, 0, len(active))
	for _, status := range active {
		cols = append(cols, renderColumn(status, board.Columns[status], board.Counts[status], colWidth, rows))
	}

	summary := sectionStyle.Render(fmt.Sprintf("done %d  cancelled %d",
		board.Counts[models.TaskStatusDone], board.Counts[models.TaskStatusCancelled]))
	return lipgloss.JoinVertical(lipgloss.Left, lipgloss.JoinHorizontal(lipgloss.Top, cols...), summary)
}

func renderColumn(status models.TaskStatus, tasks []*models.Task, count, width, rows int) string {
	style := statusStyles[status]
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%d)", status, count)))
	b.WriteString("\n")

	if len(tasks) == 0 {
		b.WriteString(dimStyle.Render("  none"))
	}
	for i, t := range tasks {
		if rows > 0 && i >= rows {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  +%d more", len(tasks)-i)))
			break
		}
		prefix := style.Render(statusIcon(t.Status)) + " "
		if t.ParentID != "" {
			prefix = childStyle.Render("└ ") + prefix
		}
		b.WriteString(prefix + truncateText(t.Title, width-6))
		if i < len(tasks)-1 {
			b.WriteString("\n")
		}
	}
	return columnStyle.Width(width).Render(b.String())
}

func renderJobs(jobs []models.Job, now time.Time) string {
	if len(jobs) == 0 {
		return dimStyle.Render("No scheduled jobs.")
	}
	var lines []string
	for _, j := range jobs {
		state := statusStyles[models.TaskStatusInProgress].Render("on ")
		next := "next " + humanizeUntil(j.NextFire, now)
		if !j.Enabled {
			state = dimStyle.Render("off")
			next = "paused"
		}
		line := fmt.Sprintf("%s %-8s %-28s %-22s %s", state, j.ID, truncateText(j.Name, 28), j.Schedule(), next)
		if j.LastError != "" {
			line += "  " + statusStyles[models.TaskStatusFailed].Render(truncateText(j.LastError, 40))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderEvents(events []models.Event, width int) string {
	if len(events) == 0 {
		return dimStyle.Render("No events today.")
	}
	var lines []string
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		risk := riskStyles[e.Risk].Render(fmt.Sprintf("%-6s", e.Risk))
		line := fmt.Sprintf("%s %s %-20s %s", e.Timestamp.Local().Format("15:04:05"), risk, e.Type, e.Message)
		lines = append(lines, truncateText(line, width+20))
	}
	return strings.Join(lines, "\n")
}

func renderProviders(health []provider.Health, now time.Time) string {
	if len(health) == 0 {
		return dimStyle.Render("No providers in this process.")
	}
	var lines []string
	for _, h := range health {
		state := statusStyles[models.TaskStatusDone].Render("ready")
		switch {
		case !h.Available:
			state = statusStyles[models.TaskStatusFailed].Render("unavailable")
		case h.CoolingDown(now):
			state = statusStyles[models.TaskStatusWaitingConfirm].Render("cooling " + humanizeUntil(h.CooldownUntil, now))
		}
		line := fmt.Sprintf("%-16s %-24s ok %-4d fail %-4d", h.Name, state, h.Successes, h.Failures)
		if h.LastError != "" {
			line += "  " + dimStyle.Render(truncateText(h.LastError, 60))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func humanizeUntil(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := t.Sub(now).Round(time.Second)
	if d <= 0 {
		return "due"
	}
	return "in " + d.String()
}

func truncateText(s string, n int) string {
	if n <= 3 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
