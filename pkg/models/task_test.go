package models

import (
	"testing"
	"time"
)

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"pending is valid", TaskStatusPending, true},
		{"in_progress is valid", TaskStatusInProgress, true},
		{"waiting_confirm is valid", TaskStatusWaitingConfirm, true},
		{"done is valid", TaskStatusDone, true},
		{"failed is valid", TaskStatusFailed, true},
		{"cancelled is valid", TaskStatusCancelled, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"unknown status is invalid", TaskStatus("blocked"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		terminal bool
		active   bool
	}{
		{TaskStatusPending, false, true},
		{TaskStatusInProgress, false, true},
		{TaskStatusWaitingConfirm, false, true},
		{TaskStatusDone, true, false},
		{TaskStatusFailed, false, false},
		{TaskStatusCancelled, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.status.IsActive(); got != tt.active {
				t.Errorf("IsActive() = %v, want %v", got, tt.active)
			}
		})
	}
}

func TestTask_Clone(t *testing.T) {
	orig := &Task{
		ID:        "t-1",
		Title:     "book flights",
		Status:    TaskStatusDone,
		Result:    &TaskResult{Success: true, Message: "booked"},
		CreatedAt: time.Now(),
	}

	c := orig.Clone()
	c.Result.Message = "changed"
	c.Title = "other"

	if orig.Result.Message != "booked" {
		t.Errorf("clone shares Result with original")
	}
	if orig.Title != "book flights" {
		t.Errorf("clone shares Title with original")
	}

	var nilTask *Task
	if nilTask.Clone() != nil {
		t.Errorf("Clone of nil task should be nil")
	}
}
