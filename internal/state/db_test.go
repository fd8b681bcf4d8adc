package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/steward/pkg/models"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t), "")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

var testTime = time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC)

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path, DriverModernc)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if db.Driver() != DriverModernc {
		t.Errorf("Driver() = %q, want %q", db.Driver(), DriverModernc)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b", "c")

	db, err := Open(filepath.Join(nested, "test.db"), "")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(tempDBPath(t), "postgres"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != 2 {
		t.Errorf("schema version = %d, want 2", v)
	}

	for _, table := range []string{"tasks", "jobs"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestTasks_SaveAndLoad(t *testing.T) {
	db := setupTestDB(t)

	task := &models.Task{
		ID:         "t1",
		ParentID:   "p1",
		OrderIndex: 2,
		Title:      "draft agenda",
		Agent:      "writing",
		Status:     models.TaskStatusPending,
		MaxRetries: 3,
		CreatedAt:  testTime,
		UpdatedAt:  testTime,
	}
	if err := db.SaveTask(task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	task.Status = models.TaskStatusDone
	task.Result = &models.TaskResult{Success: true, Message: "sent", Proof: "/tmp/agenda.md"}
	task.UpdatedAt = testTime.Add(time.Minute)
	if err := db.SaveTask(task); err != nil {
		t.Fatalf("SaveTask (update) failed: %v", err)
	}

	all, err := db.LoadTasks()
	if err != nil {
		t.Fatalf("LoadTasks failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("LoadTasks returned %d tasks, want 1 after upsert", len(all))
	}
	got := all[0]
	if got.Status != models.TaskStatusDone {
		t.Errorf("Status = %q, want done", got.Status)
	}
	if got.Result == nil || got.Result.Proof != "/tmp/agenda.md" {
		t.Errorf("Result = %+v, want proof /tmp/agenda.md", got.Result)
	}
	if !got.CreatedAt.Equal(testTime) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, testTime)
	}
	if !got.UpdatedAt.Equal(testTime.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, testTime.Add(time.Minute))
	}
	if got.ParentID != "p1" || got.OrderIndex != 2 || got.MaxRetries != 3 {
		t.Errorf("unexpected task fields: %+v", got)
	}
}

func TestTasks_LoadOrdersByCreation(t *testing.T) {
	db := setupTestDB(t)

	for i, id := range []string{"later", "earlier"} {
		created := testTime.Add(time.Duration(1-i) * time.Hour)
		task := &models.Task{ID: id, Title: id, Status: models.TaskStatusPending, CreatedAt: created, UpdatedAt: created}
		if err := db.SaveTask(task); err != nil {
			t.Fatalf("SaveTask(%s) failed: %v", id, err)
		}
	}

	all, err := db.LoadTasks()
	if err != nil {
		t.Fatalf("LoadTasks failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "earlier" || all[1].ID != "later" {
		t.Errorf("LoadTasks order = %+v, want earlier then later", all)
	}
}

func TestJobs_SaveLoadDelete(t *testing.T) {
	db := setupTestDB(t)

	jobs := []*models.Job{
		{ID: "j1", Name: "mail", Command: "check mail", Kind: models.JobInterval, Interval: 2 * time.Minute,
			Enabled: true, NextFire: testTime.Add(2 * time.Minute), CreatedAt: testTime},
		{ID: "j2", Name: "standup", Command: "reminder: standup", Kind: models.JobCron, CronExpr: "0 9 * * 1-5",
			Enabled: false, LastFired: testTime, FireCount: 4, LastError: "boom", CreatedAt: testTime.Add(time.Second)},
		{ID: "j3", Name: "once", Command: "x", Kind: models.JobOnce, RunAt: testTime.Add(time.Hour),
			Enabled: true, NextFire: testTime.Add(time.Hour), CreatedAt: testTime.Add(2 * time.Second)},
	}
	for _, j := range jobs {
		if err := db.SaveJob(j); err != nil {
			t.Fatalf("SaveJob(%s) failed: %v", j.ID, err)
		}
	}

	loaded, err := db.LoadJobs()
	if err != nil {
		t.Fatalf("LoadJobs failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("LoadJobs returned %d jobs, want 3", len(loaded))
	}

	byID := make(map[string]models.Job)
	for _, j := range loaded {
		byID[j.ID] = j
	}
	if byID["j1"].Interval != 2*time.Minute || !byID["j1"].Enabled {
		t.Errorf("j1 = %+v", byID["j1"])
	}
	if byID["j2"].Enabled || byID["j2"].FireCount != 4 || byID["j2"].LastError != "boom" {
		t.Errorf("j2 = %+v", byID["j2"])
	}
	if !byID["j2"].NextFire.IsZero() {
		t.Errorf("j2 NextFire = %v, want zero", byID["j2"].NextFire)
	}
	if !byID["j3"].RunAt.Equal(testTime.Add(time.Hour)) {
		t.Errorf("j3 RunAt = %v", byID["j3"].RunAt)
	}

	if err := db.DeleteJob("j2"); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}
	loaded, _ = db.LoadJobs()
	if len(loaded) != 2 {
		t.Errorf("after delete: %d jobs, want 2", len(loaded))
	}
}

func TestFormatAndParseTime(t *testing.T) {
	got, err := parseTime(formatTime(testTime))
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !got.Equal(testTime) {
		t.Errorf("round trip = %v, want %v", got, testTime)
	}

	if formatTime(time.Time{}) != "" {
		t.Error("zero time should format as empty string")
	}
	zero, err := parseTime("")
	if err != nil || !zero.IsZero() {
		t.Errorf("parseTime(\"\") = %v, %v", zero, err)
	}
}
