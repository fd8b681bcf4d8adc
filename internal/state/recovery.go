package state

import (
	"fmt"
	"time"

	"github.com/ShayCichocki/steward/pkg/models"
)

// RecoveryInfo describes work left behind by a process that exited
// without finishing it.
type RecoveryInfo struct {
	// InterruptedTasks are tasks still marked in_progress.
	InterruptedTasks []models.Task
	// WaitingTasks are tasks parked for user confirmation.
	WaitingTasks []models.Task
	// OverdueJobs are enabled jobs whose next fire time has passed.
	OverdueJobs []models.Job
}

// HasWork reports whether anything needs attention.
func (r *RecoveryInfo) HasWork() bool {
	return len(r.InterruptedTasks) > 0 || len(r.WaitingTasks) > 0 || len(r.OverdueJobs) > 0
}

// Summary renders a one-line description.
func (r *RecoveryInfo) Summary() string {
	return fmt.Sprintf("%d interrupted task(s), %d awaiting confirmation, %d overdue job(s)",
		len(r.InterruptedTasks), len(r.WaitingTasks), len(r.OverdueJobs))
}

// CheckRecovery inspects a task and job store for interrupted work.
func CheckRecovery(tasks TaskStore, jobs JobStore, now time.Time) (*RecoveryInfo, error) {
	info := &RecoveryInfo{}

	loaded, err := tasks.LoadTasks()
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	for _, t := range loaded {
		switch t.Status {
		case models.TaskStatusInProgress:
			info.InterruptedTasks = append(info.InterruptedTasks, t)
		case models.TaskStatusWaitingConfirm:
			info.WaitingTasks = append(info.WaitingTasks, t)
		}
	}

	loadedJobs, err := jobs.LoadJobs()
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	for _, j := range loadedJobs {
		if j.Enabled && !j.NextFire.IsZero() && j.NextFire.Before(now) {
			info.OverdueJobs = append(info.OverdueJobs, j)
		}
	}
	return info, nil
}
