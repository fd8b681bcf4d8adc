package models

import "time"

// JobKind selects how a job's next fire time is computed.
type JobKind string

const (
	// JobInterval fires every Interval.
	JobInterval JobKind = "interval"
	// JobDaily fires once a day at TimeOfDay (local time).
	JobDaily JobKind = "daily"
	// JobOnce fires at RunAt and is then disabled.
	JobOnce JobKind = "once"
	// JobCron fires on a standard five-field cron expression.
	JobCron JobKind = "cron"
)

// Valid returns true if the job kind is a known value.
func (k JobKind) Valid() bool {
	switch k {
	case JobInterval, JobDaily, JobOnce, JobCron:
		return true
	default:
		return false
	}
}

// Job is a timed request the scheduler feeds back through the orchestrator.
type Job struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Command   string        `json:"command"`
	Kind      JobKind       `json:"kind"`
	Interval  time.Duration `json:"interval,omitempty"`
	TimeOfDay string        `json:"time_of_day,omitempty"`
	CronExpr  string        `json:"cron_expr,omitempty"`
	RunAt     time.Time     `json:"run_at,omitempty"`
	Enabled   bool          `json:"enabled"`
	LastFired time.Time     `json:"last_fired,omitempty"`
	NextFire  time.Time     `json:"next_fire"`
	FireCount int           `json:"fire_count"`
	LastError string        `json:"last_error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Schedule renders a short human description of when the job fires.
func (j *Job) Schedule() string {
	switch j.Kind {
	case JobInterval:
		return "every " + j.Interval.String()
	case JobDaily:
		return "daily at " + j.TimeOfDay
	case JobOnce:
		return "once at " + j.RunAt.Format(time.RFC3339)
	case JobCron:
		return "cron " + j.CronExpr
	default:
		return string(j.Kind)
	}
}
