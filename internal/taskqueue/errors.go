package taskqueue

import (
	"errors"
	"fmt"

	"github.com/ShayCichocki/steward/pkg/models"
)

// ErrNotFound is returned for unknown task IDs.
var ErrNotFound = errors.New("task not found")

// ErrRetryLimit is returned when a failed task has used its retry budget.
var ErrRetryLimit = errors.New("retry limit reached")

// InvalidTransitionError is returned when a move is not in the transition table.
type InvalidTransitionError struct {
	TaskID string
	From   models.TaskStatus
	To     models.TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s: invalid transition %s -> %s", e.TaskID, e.From, e.To)
}
