package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/steward/internal/provider"
	"github.com/ShayCichocki/steward/internal/taskqueue"
	"github.com/ShayCichocki/steward/pkg/models"
)

func testSnapshot() Snapshot {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	pending := &models.Task{ID: "t1", Title: "Draft the weekly report", Status: models.TaskStatusPending}
	waiting := &models.Task{ID: "t2", Title: "Delete ~/tmp/old", Status: models.TaskStatusWaitingConfirm}
	return Snapshot{
		Board: taskqueue.Board{
			Columns: map[models.TaskStatus][]*models.Task{
				models.TaskStatusPending:        {pending},
				models.TaskStatusWaitingConfirm: {waiting},
			},
			Counts: map[models.TaskStatus]int{
				models.TaskStatusPending:        1,
				models.TaskStatusWaitingConfirm: 1,
				models.TaskStatusDone:           4,
			},
		},
		Jobs: []models.Job{{
			ID: "j1", Name: "morning brief", Kind: models.JobDaily, TimeOfDay: "09:30",
			Enabled: true, NextFire: now.Add(30 * time.Minute),
		}},
		Events: []models.Event{{
			Timestamp: now, Type: models.EventRoutingDecision, Risk: models.RiskLow, Message: "routed via intent",
		}},
		Providers: []provider.Health{{Name: "anthropic", Available: true, Successes: 3}},
		TakenAt:   now,
	}
}

func staticSnapshot(s Snapshot) SnapshotFunc {
	return func() (Snapshot, error) { return s, nil }
}

func TestApp_SnapshotMsgUpdatesView(t *testing.T) {
	app := NewApp(staticSnapshot(testSnapshot()), nil, time.Second)
	app.Update(tea.WindowSizeMsg{Width: 200, Height: 40})

	model, _ := app.Update(snapshotMsg{snap: testSnapshot()})
	view := model.(*App).View()

	if !strings.Contains(view, "Draft the weekly report") {
		t.Errorf("board view missing pending task:\n%s", view)
	}
	if !strings.Contains(view, "2 active task(s)") {
		t.Errorf("header should count active tasks:\n%s", view)
	}
	if !strings.Contains(view, "done 4") {
		t.Errorf("summary should include done count:\n%s", view)
	}
}

func TestApp_SnapshotErrorKeepsLastFrame(t *testing.T) {
	app := NewApp(staticSnapshot(testSnapshot()), nil, time.Second)
	app.Update(snapshotMsg{snap: testSnapshot()})
	app.Update(snapshotMsg{err: errors.New("db locked")})

	if app.snap.TakenAt.IsZero() {
		t.Error("last good snapshot should survive a failed refresh")
	}
	if !strings.Contains(app.View(), "refresh failed: db locked") {
		t.Errorf("footer should show refresh error:\n%s", app.View())
	}
}

func TestApp_TabSwitching(t *testing.T) {
	app := NewApp(staticSnapshot(testSnapshot()), nil, time.Second)
	app.Update(snapshotMsg{snap: testSnapshot()})

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	if app.tabs.Active() != TabIndexJobs {
		t.Fatalf("active tab = %d, want jobs", app.tabs.Active())
	}
	if !strings.Contains(app.View(), "morning brief") {
		t.Errorf("jobs tab missing job:\n%s", app.View())
	}

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("4")})
	if !strings.Contains(app.View(), "anthropic") {
		t.Errorf("providers tab missing provider:\n%s", app.View())
	}
}

func TestApp_QuitKey(t *testing.T) {
	app := NewApp(staticSnapshot(Snapshot{}), nil, time.Second)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if app.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestApp_SlashFocusesOnlyWithAsk(t *testing.T) {
	noAsk := NewApp(staticSnapshot(Snapshot{}), nil, time.Second)
	noAsk.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if noAsk.input.Focused() {
		t.Error("input should stay unfocused without an ask handler")
	}

	ask := func(context.Context, string) (string, error) { return "ok", nil }
	withAsk := NewApp(staticSnapshot(Snapshot{}), ask, time.Second)
	withAsk.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !withAsk.input.Focused() {
		t.Error("/ should focus the input")
	}

	// q typed while focused goes to the input, not quit
	withAsk.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if withAsk.quitting {
		t.Error("typing q into the input should not quit")
	}

	withAsk.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if withAsk.input.Focused() {
		t.Error("esc should blur the input")
	}
}

func TestApp_SubmitAndAnswer(t *testing.T) {
	var got string
	ask := func(_ context.Context, text string) (string, error) {
		got = text
		return "Opened Safari.\nmore detail", nil
	}
	app := NewApp(staticSnapshot(Snapshot{}), ask, time.Second)

	_, cmd := app.Update(RequestSubmittedMsg{Text: "open safari"})
	if cmd == nil || !app.asking {
		t.Fatal("submit should start an ask")
	}

	// a second submit while asking is ignored
	if _, again := app.Update(RequestSubmittedMsg{Text: "again"}); again != nil {
		t.Error("second submit should be ignored while asking")
	}

	msg := cmd()
	if got != "open safari" {
		t.Errorf("ask received %q", got)
	}
	app.Update(msg)
	if app.asking {
		t.Error("asking should clear after the answer")
	}
	if app.status != "Opened Safari." {
		t.Errorf("status = %q, want first line of reply", app.status)
	}
}

func TestApp_AnswerError(t *testing.T) {
	app := NewApp(staticSnapshot(Snapshot{}), func(context.Context, string) (string, error) { return "", nil }, time.Second)
	app.Update(answerMsg{question: "x", err: errors.New("all providers exhausted")})

	if app.statusOK {
		t.Error("error answer should mark status as failed")
	}
	if !strings.Contains(app.View(), "error: all providers exhausted") {
		t.Errorf("footer missing error:\n%s", app.View())
	}
}

func TestHumanizeUntil(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, "-"},
		{now.Add(-time.Minute), "due"},
		{now.Add(90 * time.Second), "in 1m30s"},
	}
	for _, tt := range tests {
		if got := humanizeUntil(tt.at, now); got != tt.want {
			t.Errorf("humanizeUntil(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateText("a much longer title", 10); got != "a much ..." {
		t.Errorf("got %q", got)
	}
}
