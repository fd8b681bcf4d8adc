package intent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/steward/internal/protect"
	"github.com/ShayCichocki/steward/pkg/models"
)

type fakeOps struct {
	opened  []string
	created []string
	deleted []string
	failAll error
}

func (f *fakeOps) OpenApp(ctx context.Context, name string) error {
	f.opened = append(f.opened, name)
	return f.failAll
}

func (f *fakeOps) CreateFolder(ctx context.Context, path string) error {
	f.created = append(f.created, path)
	return f.failAll
}

func (f *fakeOps) DeletePath(ctx context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	return f.failAll
}

func (f *fakeOps) SystemInfo(ctx context.Context) (string, error) {
	return "os=test", f.failAll
}

func newRuleDispatcher(ops Operations, destructive bool) (*Dispatcher, *Session) {
	s := NewSession()
	return NewDispatcher(DefaultDetectors(RuleConfig{Ops: ops, Session: s, DestructiveAllowed: destructive})), s
}

func TestDefaultDetectors_Order(t *testing.T) {
	d, _ := newRuleDispatcher(&fakeOps{}, false)
	assert.Equal(t, []string{
		"confirm_pending", "cancel_pending", "delete_path", "create_folder",
		"open_app", "research_delegate", "system_info",
	}, d.Names())
}

func TestRules_Matching(t *testing.T) {
	tests := []struct {
		text     string
		detector string
		action   models.ActionType
	}{
		{"open Spotify", "open_app", models.ActionOpenApp},
		{"please launch the terminal", "open_app", models.ActionOpenApp},
		{"create a folder called reports", "create_folder", models.ActionCreateFolder},
		{"make new directory projects/2026", "create_folder", models.ActionCreateFolder},
		{"research solar panel rebates", "research_delegate", models.ActionDelegate},
		{"look up the weather in Lisbon", "research_delegate", models.ActionDelegate},
		{"show me system info", "system_info", models.ActionSystemInfo},
		{"delete the folder old-stuff", "delete_path", models.ActionClarify},
		{"write a haiku about spring", "", ""},
		{"yes", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d, _ := newRuleDispatcher(&fakeOps{}, false)
			action, name := d.Evaluate(tt.text)
			assert.Equal(t, tt.detector, name)
			if tt.detector == "" {
				assert.Nil(t, action)
				return
			}
			require.NotNil(t, action)
			assert.Equal(t, tt.action, action.Type)
		})
	}
}

func TestRules_CreateFolderPassesPath(t *testing.T) {
	ops := &fakeOps{}
	d, _ := newRuleDispatcher(ops, false)

	action, _ := d.Evaluate("create folder named \"tax docs\"")
	require.NotNil(t, action)
	assert.True(t, action.Success)
	assert.Equal(t, []string{"tax docs"}, ops.created)
	assert.Equal(t, "tax docs", action.Payload["path"])
}

func TestRules_OperationFailureIsUnsuccessfulMatch(t *testing.T) {
	ops := &fakeOps{failAll: errors.New("permission denied")}
	d, _ := newRuleDispatcher(ops, false)

	action, name := d.Evaluate("open calculator")
	require.NotNil(t, action)
	assert.Equal(t, "open_app", name)
	assert.False(t, action.Success)
	assert.Contains(t, action.Message, "permission denied")
}

func TestRules_DeleteRequiresConfirmation(t *testing.T) {
	ops := &fakeOps{}
	d, session := newRuleDispatcher(ops, false)

	action, _ := d.Evaluate("delete the file notes.txt")
	require.NotNil(t, action)
	assert.Equal(t, models.ActionClarify, action.Type)
	assert.Equal(t, models.RiskHigh, action.Risk)
	assert.Empty(t, ops.deleted, "nothing is deleted before confirmation")
	assert.True(t, session.HasPending())

	action, name := d.Evaluate("Yes!")
	require.NotNil(t, action)
	assert.Equal(t, "confirm_pending", name)
	assert.Equal(t, models.ActionDeletePath, action.Type)
	assert.True(t, action.Success)
	assert.Equal(t, []string{"notes.txt"}, ops.deleted)
	assert.False(t, session.HasPending())
}

func TestRules_DeleteCancelled(t *testing.T) {
	ops := &fakeOps{}
	d, session := newRuleDispatcher(ops, false)

	_, _ = d.Evaluate("remove folder scratch")
	action, name := d.Evaluate("nevermind")
	require.NotNil(t, action)
	assert.Equal(t, "cancel_pending", name)
	assert.Equal(t, models.ActionCancel, action.Type)
	assert.Empty(t, ops.deleted)
	assert.False(t, session.HasPending())
}

func TestRules_DeleteWithoutConfirmationWhenAllowed(t *testing.T) {
	ops := &fakeOps{}
	d, session := newRuleDispatcher(ops, true)

	action, _ := d.Evaluate("delete the directory build")
	require.NotNil(t, action)
	assert.Equal(t, models.ActionDeletePath, action.Type)
	assert.Equal(t, []string{"build"}, ops.deleted)
	assert.False(t, session.HasPending())
}

func TestRules_ResearchPayload(t *testing.T) {
	d, _ := newRuleDispatcher(&fakeOps{}, false)
	action, _ := d.Evaluate("search for cheap flights to Tokyo")
	require.NotNil(t, action)
	assert.True(t, action.IsDelegate())
	assert.Equal(t, "cheap flights to Tokyo", action.Payload["query"])
	assert.Contains(t, action.Payload["request"], "cheap flights to Tokyo")
}

func TestOSOperations(t *testing.T) {
	root := t.TempDir()
	ops := &OSOperations{Root: root}
	ctx := context.Background()

	require.NoError(t, ops.CreateFolder(ctx, "a/b"))
	info, err := os.Stat(filepath.Join(root, "a", "b"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, ops.DeletePath(ctx, "a"))
	_, err = os.Stat(filepath.Join(root, "a"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, ops.DeletePath(ctx, "missing"))
	assert.Error(t, ops.DeletePath(ctx, "."), "deleting the root is refused")

	summary, err := ops.SystemInfo(ctx)
	require.NoError(t, err)
	assert.Contains(t, summary, "os=")
}

func TestRules_ResolvedPathPayload(t *testing.T) {
	root := t.TempDir()
	d, _ := newRuleDispatcher(&OSOperations{Root: root}, false)

	action, _ := d.Evaluate("create folder inbox")
	require.NotNil(t, action)
	assert.True(t, action.Success)
	assert.Equal(t, filepath.Join(root, "inbox"), action.Payload["resolved"])
}

func TestRules_ProtectedDeleteAlwaysConfirms(t *testing.T) {
	ops := &fakeOps{}
	s := NewSession()
	d := NewDispatcher(DefaultDetectors(RuleConfig{
		Ops:                ops,
		Session:            s,
		DestructiveAllowed: true,
		Guard:              protect.New(),
	}))

	action, _ := d.Evaluate("delete the folder /home/ana/.ssh")
	require.NotNil(t, action)
	assert.Equal(t, models.ActionClarify, action.Type)
	assert.Contains(t, action.Payload["protected"], ".ssh")
	assert.Empty(t, ops.deleted, "protected path must not be deleted before confirmation")
	assert.True(t, s.HasPending())

	action, _ = d.Evaluate("yes")
	require.NotNil(t, action)
	assert.Equal(t, []string{"/home/ana/.ssh"}, ops.deleted)

	action, _ = d.Evaluate("delete the folder /home/ana/scratch")
	require.NotNil(t, action)
	assert.Equal(t, models.ActionDeletePath, action.Type, "unprotected paths still skip confirmation")
}

type fakeRunner struct {
	started [][]string
	output  string
}

func (f *fakeRunner) Start(_ context.Context, name string, args ...string) error {
	f.started = append(f.started, append([]string{name}, args...))
	return nil
}

func (f *fakeRunner) Output(context.Context, string, ...string) (string, error) {
	return f.output, nil
}

func (f *fakeRunner) Available(string) bool { return false }

func TestOSOperations_UsesRunner(t *testing.T) {
	r := &fakeRunner{output: "Linux 6.1.0"}
	ops := &OSOperations{Root: t.TempDir(), Runner: r}
	ctx := context.Background()

	require.NoError(t, ops.OpenApp(ctx, "Safari"))
	require.Len(t, r.started, 1)
	assert.Contains(t, r.started[0], "Safari")

	info, err := ops.SystemInfo(ctx)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Contains(t, info, `kernel="Linux 6.1.0"`)
	}
}
