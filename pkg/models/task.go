package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusWaitingConfirm indicates the task is paused until the user confirms.
	TaskStatusWaitingConfirm TaskStatus = "waiting_confirm"
	// TaskStatusDone indicates the task completed successfully.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was abandoned.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// TaskStatuses lists every status in board order.
var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusWaitingConfirm,
	TaskStatusDone,
	TaskStatusFailed,
	TaskStatusCancelled,
}

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusWaitingConfirm,
		TaskStatusDone, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
// Failed is not terminal because it can be retried.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusDone || s == TaskStatusCancelled
}

// IsActive reports whether the task still needs attention.
func (s TaskStatus) IsActive() bool {
	return s == TaskStatusPending || s == TaskStatusInProgress || s == TaskStatusWaitingConfirm
}

// TaskResult records the outcome attached to a finished task.
type TaskResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Proof   string `json:"proof,omitempty"`
}

// Task represents a unit of work tracked by the queue.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// ParentID is the ID of the parent task when this is a procedure step.
	ParentID string `json:"parent_id,omitempty"`
	// OrderIndex is the position of this step under its parent.
	OrderIndex int `json:"order_index"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Agent is the owning agent or handler category.
	Agent string `json:"agent,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Result is set once the task reaches done or failed.
	Result *TaskResult `json:"result,omitempty"`
	// RetryCount is the number of times this task has been retried.
	RetryCount int `json:"retry_count"`
	// MaxRetries bounds RetryCount.
	MaxRetries int `json:"max_retries"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Result != nil {
		r := *t.Result
		c.Result = &r
	}
	return &c
}
