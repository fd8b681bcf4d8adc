// Package taskqueue tracks tasks through a fixed state machine and persists
// every change before acknowledging it.
package taskqueue

import "github.com/ShayCichocki/steward/pkg/models"

// transitions is the complete set of allowed moves. failed -> pending is
// only reachable through retry, which enforces the retry budget.
var transitions = map[models.TaskStatus][]models.TaskStatus{
	models.TaskStatusPending: {
		models.TaskStatusInProgress,
		models.TaskStatusCancelled,
	},
	models.TaskStatusInProgress: {
		models.TaskStatusDone,
		models.TaskStatusFailed,
		models.TaskStatusWaitingConfirm,
		models.TaskStatusCancelled,
	},
	models.TaskStatusWaitingConfirm: {
		models.TaskStatusInProgress,
		models.TaskStatusCancelled,
	},
	models.TaskStatusFailed: {
		models.TaskStatusPending,
	},
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(from, to models.TaskStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Allowed returns the states reachable from s.
func Allowed(s models.TaskStatus) []models.TaskStatus {
	return append([]models.TaskStatus(nil), transitions[s]...)
}
