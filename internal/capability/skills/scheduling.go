// Package skills contains the built-in capability handlers.
package skills

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ShayCichocki/steward/pkg/models"
)

// reminderPrefix marks the command a reminder job fires with.
const reminderPrefix = "reminder:"

// JobAdder persists a new scheduled job.
type JobAdder interface {
	AddJob(job models.Job) (*models.Job, error)
}

// Scheduling turns "remind me ..." and "every N minutes ..." requests into
// scheduled jobs, and delivers reminders when those jobs fire.
type Scheduling struct {
	jobs JobAdder
	now  func() time.Time
}

// NewScheduling returns a scheduling handler backed by jobs.
func NewScheduling(jobs JobAdder) *Scheduling {
	return &Scheduling{jobs: jobs, now: time.Now}
}

func (s *Scheduling) Name() string                  { return "scheduling" }
func (s *Scheduling) Category() string              { return "scheduling" }
func (s *Scheduling) RiskCeiling() models.RiskLevel { return models.RiskLow }

var (
	everyNPattern   = regexp.MustCompile(`(?i)^(?:remind me\s+)?every\s+(\d+)\s*(second|sec|minute|min|hour|hr|day)s?\s+(?:to\s+)?(.+)$`)
	everyOnePattern = regexp.MustCompile(`(?i)^(?:remind me\s+)?every\s+(minute|hour)\s+(?:to\s+)?(.+)$`)
	dailyPattern    = regexp.MustCompile(`(?i)^(?:remind me\s+)?(?:every\s+day|daily)\s+at\s+(\d{1,2}:\d{2})\s+(?:to\s+)?(.+)$`)
	inPattern       = regexp.MustCompile(`(?i)^(?:remind me\s+)?in\s+(\d+)\s*(minute|min|hour|hr)s?\s+(?:to\s+)?(.+)$`)
	trailingIn      = regexp.MustCompile(`(?i)^remind me\s+(?:to\s+)?(.+?)\s+in\s+(\d+)\s*(minute|min|hour|hr)s?$`)
	atPattern       = regexp.MustCompile(`(?i)^(?:remind me\s+)?at\s+(\d{1,2}:\d{2})\s+(?:to\s+)?(.+)$`)
	schedulingWords = regexp.MustCompile(`(?i)\b(remind me|schedule|every day|daily|every \w+)\b`)
)

// Score implements capability.Handler.
func (s *Scheduling) Score(request string) float64 {
	text := strings.TrimSpace(request)
	if strings.HasPrefix(strings.ToLower(text), reminderPrefix) {
		return 1.0
	}
	if _, err := s.parse(text); err == nil {
		return 0.9
	}
	if schedulingWords.MatchString(text) {
		return 0.4
	}
	return 0
}

// Execute implements capability.Handler.
func (s *Scheduling) Execute(ctx context.Context, request string) (*models.Action, error) {
	text := strings.TrimSpace(request)
	if strings.HasPrefix(strings.ToLower(text), reminderPrefix) {
		body := strings.TrimSpace(text[len(reminderPrefix):])
		return &models.Action{
			Type:    models.ActionSchedule,
			Success: true,
			Message: "Reminder: " + body,
			Risk:    models.RiskLow,
			Payload: map[string]string{"reminder": body},
		}, nil
	}

	job, err := s.parse(text)
	if err != nil {
		return nil, err
	}
	saved, err := s.jobs.AddJob(*job)
	if err != nil {
		return nil, fmt.Errorf("add job: %w", err)
	}

	return &models.Action{
		Type:     models.ActionSchedule,
		Success:  true,
		Message:  fmt.Sprintf("Scheduled %q %s (next: %s)", saved.Name, saved.Schedule(), saved.NextFire.Format(time.RFC1123)),
		Proof:    "job " + saved.ID + " persisted",
		NextStep: "steward job list",
		Risk:     models.RiskLow,
		Payload: map[string]string{
			"job_id":  saved.ID,
			"command": saved.Command,
		},
	}, nil
}

// parse builds an unsaved job from a scheduling request.
func (s *Scheduling) parse(text string) (*models.Job, error) {
	reminder := strings.HasPrefix(strings.ToLower(text), "remind me")

	if m := dailyPattern.FindStringSubmatch(text); m != nil {
		if _, err := time.Parse("15:04", m[1]); err != nil {
			return nil, fmt.Errorf("invalid time of day %q", m[1])
		}
		return s.job(m[2], reminder, models.Job{Kind: models.JobDaily, TimeOfDay: zeroPad(m[1])}), nil
	}
	if m := everyNPattern.FindStringSubmatch(text); m != nil {
		d, err := span(m[1], m[2])
		if err != nil {
			return nil, err
		}
		return s.job(m[3], reminder, models.Job{Kind: models.JobInterval, Interval: d}), nil
	}
	if m := everyOnePattern.FindStringSubmatch(text); m != nil {
		return s.job(m[2], reminder, models.Job{Kind: models.JobInterval, Interval: unit(m[1])}), nil
	}
	if m := inPattern.FindStringSubmatch(text); m != nil {
		d, err := span(m[1], m[2])
		if err != nil {
			return nil, err
		}
		return s.job(m[3], reminder, models.Job{Kind: models.JobOnce, RunAt: s.now().Add(d)}), nil
	}
	if m := trailingIn.FindStringSubmatch(text); m != nil {
		d, err := span(m[2], m[3])
		if err != nil {
			return nil, err
		}
		return s.job(m[1], true, models.Job{Kind: models.JobOnce, RunAt: s.now().Add(d)}), nil
	}
	if m := atPattern.FindStringSubmatch(text); m != nil {
		at, err := time.Parse("15:04", m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid time %q", m[1])
		}
		now := s.now()
		runAt := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
		if !runAt.After(now) {
			runAt = runAt.AddDate(0, 0, 1)
		}
		return s.job(m[2], reminder, models.Job{Kind: models.JobOnce, RunAt: runAt}), nil
	}
	return nil, errors.New("no schedule found in request")
}

func (s *Scheduling) job(body string, reminder bool, job models.Job) *models.Job {
	body = strings.TrimSpace(body)
	job.Name = body
	job.Command = body
	if reminder {
		job.Command = reminderPrefix + " " + body
	}
	return &job
}

// maxSpan bounds parsed intervals and delays; anything longer is almost
// certainly a typo and would overflow time.Duration soon after.
const maxSpan = 10 * 365 * 24 * time.Hour

// span multiplies a parsed count by its unit, rejecting zero and anything
// beyond maxSpan before the multiplication can overflow.
func span(count, u string) (time.Duration, error) {
	n, err := strconv.ParseInt(count, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid count %q: must be a positive number", count)
	}
	per := unit(u)
	if n > int64(maxSpan/per) {
		return 0, fmt.Errorf("%s %ss is longer than %s", count, strings.ToLower(u), maxSpan)
	}
	return time.Duration(n) * per, nil
}

func unit(u string) time.Duration {
	switch strings.ToLower(u) {
	case "second", "sec":
		return time.Second
	case "minute", "min":
		return time.Minute
	case "hour", "hr":
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

func zeroPad(hhmm string) string {
	if len(hhmm) == 4 {
		return "0" + hhmm
	}
	return hhmm
}
