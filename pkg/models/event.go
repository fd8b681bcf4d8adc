package models

import "time"

// EventType identifies an audit event.
type EventType string

const (
	EventRoutingDecision   EventType = "routing_decision"
	EventDetectorMatch     EventType = "detector_match"
	EventDetectorError     EventType = "detector_error"
	EventCapabilityError   EventType = "capability_error"
	EventQualityCheck      EventType = "quality_check"
	EventProcedureStarted  EventType = "procedure_started"
	EventProviderSuccess   EventType = "provider_success"
	EventProviderFailure   EventType = "provider_failure"
	EventProviderSkipped   EventType = "provider_skipped"
	EventProviderExhausted EventType = "provider_exhausted"
	EventTaskCreated       EventType = "task_created"
	EventTaskTransition    EventType = "task_transition"
	EventInvalidTransition EventType = "invalid_transition"
	EventRetryRejected     EventType = "retry_rejected"
	EventJobAdded          EventType = "job_added"
	EventJobRemoved        EventType = "job_removed"
	EventJobFired          EventType = "job_fired"
	EventRetentionSweep    EventType = "retention_sweep"
)

// Event is one append-only audit record.
type Event struct {
	Timestamp time.Time      `json:"ts"`
	Type      EventType      `json:"type"`
	Agent     string         `json:"agent"`
	TaskID    string         `json:"task_id,omitempty"`
	Risk      RiskLevel      `json:"risk"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}
