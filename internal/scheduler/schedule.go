package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ShayCichocki/steward/pkg/models"
)

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// NextFire returns the first fire time strictly after now.
// Once jobs return RunAt unchanged.
func NextFire(job *models.Job, now time.Time) (time.Time, error) {
	switch job.Kind {
	case models.JobInterval:
		if job.Interval <= 0 {
			return time.Time{}, errors.New("interval must be positive")
		}
		return now.Add(job.Interval), nil

	case models.JobDaily:
		hour, minute, err := ParseTimeOfDay(job.TimeOfDay)
		if err != nil {
			return time.Time{}, err
		}
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next, nil

	case models.JobCron:
		sched, err := cron.ParseStandard(job.CronExpr)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", job.CronExpr, err)
		}
		next := sched.Next(now)
		if next.IsZero() {
			return time.Time{}, fmt.Errorf("cron expression %q never fires", job.CronExpr)
		}
		return next, nil

	case models.JobOnce:
		if job.RunAt.IsZero() {
			return time.Time{}, errors.New("once job needs run_at")
		}
		return job.RunAt, nil

	default:
		return time.Time{}, fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

// Reschedule returns the fire time following a fire at fired that is also
// strictly after current. Interval jobs keep their phase and skip whole
// missed intervals; daily and cron jobs take the next occurrence after current.
func Reschedule(job *models.Job, fired, current time.Time) (time.Time, error) {
	next, err := NextFire(job, fired)
	if err != nil || next.After(current) {
		return next, err
	}
	if job.Kind == models.JobInterval {
		missed := current.Sub(next)/job.Interval + 1
		return next.Add(missed * job.Interval), nil
	}
	return NextFire(job, current)
}
