package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/steward/internal/provider"
	"github.com/ShayCichocki/steward/pkg/models"
)

func TestTabBar_Cycle(t *testing.T) {
	bar := NewTabBar()

	bar, _ = bar.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if bar.Active() != TabIndexProviders {
		t.Errorf("shift+tab from first = %d, want %d", bar.Active(), TabIndexProviders)
	}
	bar, _ = bar.Update(tea.KeyMsg{Type: tea.KeyTab})
	if bar.Active() != TabIndexBoard {
		t.Errorf("tab should wrap to board, got %d", bar.Active())
	}
	bar, _ = bar.Update(tea.KeyMsg{Type: tea.KeyRight})
	if bar.Active() != TabIndexJobs {
		t.Errorf("right = %d, want %d", bar.Active(), TabIndexJobs)
	}
	bar, _ = bar.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	if bar.Active() != TabIndexEvents {
		t.Errorf("3 = %d, want %d", bar.Active(), TabIndexEvents)
	}
	bar, _ = bar.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("9")})
	if bar.Active() != TabIndexEvents {
		t.Errorf("out-of-range number key moved the bar to %d", bar.Active())
	}
}

func TestTabBar_SetActiveClamps(t *testing.T) {
	bar := NewTabBar()
	bar.SetActive(42)
	if bar.Active() != TabIndexProviders {
		t.Errorf("Active() = %d, want %d", bar.Active(), TabIndexProviders)
	}
	bar.SetActive(-1)
	if bar.Active() != TabIndexBoard {
		t.Errorf("Active() = %d, want %d", bar.Active(), TabIndexBoard)
	}
	if len(bar.Tabs()) != 4 {
		t.Errorf("Tabs() len = %d, want 4", len(bar.Tabs()))
	}
}

func TestTabBar_Summarize(t *testing.T) {
	snap := testSnapshot()
	snap.Jobs = append(snap.Jobs, models.Job{ID: "j2", Name: "paused", Enabled: false})
	snap.Providers = append(snap.Providers,
		provider.Health{Name: "backup", Available: true, CooldownUntil: snap.TakenAt.Add(time.Minute)})

	bar := NewTabBar()
	bar.Summarize(snap)

	want := map[int]tabBadge{
		TabIndexBoard:     {count: 2, alert: true},
		TabIndexJobs:      {count: 1},
		TabIndexEvents:    {count: 1},
		TabIndexProviders: {count: 1, alert: true},
	}
	for i, w := range want {
		if got := bar.badges[i]; got != w {
			t.Errorf("%s badge = %+v, want %+v", tabTitles[i], got, w)
		}
	}

	view := bar.View()
	for _, label := range []string{"1 Board", "2 Jobs (1)", "3 Events (1)", "4 Providers"} {
		if !strings.Contains(view, label) {
			t.Errorf("tab bar missing %q:\n%s", label, view)
		}
	}
}

func TestTabBar_JobErrorAndHighRiskEventAlert(t *testing.T) {
	snap := testSnapshot()
	snap.Board.Counts = map[models.TaskStatus]int{models.TaskStatusPending: 3}
	snap.Jobs[0].LastError = "provider exhausted"
	snap.Events = append(snap.Events, models.Event{Type: models.EventRoutingDecision, Risk: models.RiskHigh})

	bar := NewTabBar()
	bar.Summarize(snap)

	if bar.badges[TabIndexBoard].alert {
		t.Error("pending work alone should not alert")
	}
	if !bar.badges[TabIndexJobs].alert {
		t.Error("a job with a last error should alert")
	}
	if !bar.badges[TabIndexEvents].alert || bar.badges[TabIndexEvents].count != 2 {
		t.Errorf("events badge = %+v, want 2 with alert", bar.badges[TabIndexEvents])
	}
}
