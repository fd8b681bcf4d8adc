// Package scheduler fires recurring and one-time jobs, retrying failed
// callbacks with exponential backoff.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ShayCichocki/steward/internal/backoff"
	"github.com/ShayCichocki/steward/internal/eventlog"
	"github.com/ShayCichocki/steward/internal/metrics"
	"github.com/ShayCichocki/steward/pkg/models"
)

const (
	agentName           = "scheduler"
	defaultPollInterval = 30 * time.Second
	defaultMaxRetries   = 2
)

// ErrJobNotFound is returned for unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

// Repository persists jobs. SaveJob upserts.
type Repository interface {
	LoadJobs() ([]models.Job, error)
	SaveJob(job *models.Job) error
	DeleteJob(id string) error
}

// Callback is invoked for every fired job.
type Callback func(ctx context.Context, job models.Job) error

// Config tunes the poll loop and retry behavior. A negative MaxRetries
// selects the default of two retries.
type Config struct {
	PollInterval time.Duration
	MaxRetries   int
	Backoff      backoff.Policy
}

// Scheduler owns the job list.
type Scheduler struct {
	repo    Repository
	cfg     Config
	emitter eventlog.Emitter
	logger  zerolog.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
	newID   func() string

	mu        sync.Mutex
	jobs      map[string]*models.Job
	callbacks []Callback
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithEmitter sets the audit event sink.
func WithEmitter(e eventlog.Emitter) Option {
	return func(s *Scheduler) { s.emitter = e }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithSleep overrides how retry delays are waited out.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(s *Scheduler) { s.sleep = sleep }
}

// New loads persisted jobs and returns a scheduler.
func New(repo Repository, cfg Config, opts ...Option) (*Scheduler, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff = backoff.Default()
	}

	s := &Scheduler{
		repo:    repo,
		cfg:     cfg,
		emitter: eventlog.Nop{},
		logger:  zerolog.Nop(),
		now:     time.Now,
		sleep:   backoff.Sleep,
		newID:   func() string { return uuid.New().String()[:8] },
		jobs:    make(map[string]*models.Job),
	}
	for _, opt := range opts {
		opt(s)
	}

	loaded, err := repo.LoadJobs()
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	now := s.now()
	for i := range loaded {
		job := loaded[i]
		if job.Enabled && job.NextFire.IsZero() {
			next, err := NextFire(&job, now)
			if err != nil {
				s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("disabling job with bad schedule")
				job.Enabled = false
				job.LastError = err.Error()
			} else {
				job.NextFire = next
			}
		}
		s.jobs[job.ID] = &job
	}
	s.updateGauge()
	return s, nil
}

// OnFire registers a callback run for every fired job, in registration order.
func (s *Scheduler) OnFire(cb Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// AddJob validates, schedules and persists a job. ID, CreatedAt and
// NextFire are filled in; the job starts enabled.
func (s *Scheduler) AddJob(job models.Job) (*models.Job, error) {
	job.Command = strings.TrimSpace(job.Command)
	if job.Command == "" {
		return nil, errors.New("job command is required")
	}
	if !job.Kind.Valid() {
		return nil, fmt.Errorf("unknown job kind %q", job.Kind)
	}
	if job.Name == "" {
		job.Name = job.Command
	}

	now := s.now()
	if job.Kind == models.JobOnce && !job.RunAt.After(now) {
		return nil, fmt.Errorf("run_at %s is not in the future", job.RunAt.Format(time.RFC3339))
	}
	next, err := NextFire(&job, now)
	if err != nil {
		return nil, err
	}

	generated := job.ID == ""
	if generated {
		job.ID = s.newID()
	}
	job.Enabled = true
	job.NextFire = next
	job.CreatedAt = now
	job.FireCount = 0
	job.LastError = ""

	s.mu.Lock()
	for generated {
		if _, exists := s.jobs[job.ID]; !exists {
			break
		}
		job.ID = s.newID()
	}
	if _, exists := s.jobs[job.ID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("job %s already exists", job.ID)
	}
	if err := s.repo.SaveJob(&job); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("save job: %w", err)
	}
	stored := job
	s.jobs[job.ID] = &stored
	s.mu.Unlock()

	s.updateGauge()
	s.emit(models.EventJobAdded, models.RiskLow, fmt.Sprintf("%s (%s)", job.Name, job.Schedule()), map[string]any{
		"job_id":    job.ID,
		"next_fire": job.NextFire,
	})
	return &job, nil
}

// RemoveJob deletes a job.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	if err := s.repo.DeleteJob(id); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("delete job: %w", err)
	}
	delete(s.jobs, id)
	name := job.Name
	s.mu.Unlock()

	s.updateGauge()
	s.emit(models.EventJobRemoved, models.RiskLow, name, map[string]any{"job_id": id})
	return nil
}

// PauseJob disables a job without removing it.
func (s *Scheduler) PauseJob(id string) (*models.Job, error) {
	return s.update(id, func(job *models.Job, _ time.Time) error {
		job.Enabled = false
		return nil
	})
}

// ResumeJob re-enables a job and recomputes its next fire time.
func (s *Scheduler) ResumeJob(id string) (*models.Job, error) {
	return s.update(id, func(job *models.Job, now time.Time) error {
		if job.Kind == models.JobOnce && !job.LastFired.IsZero() {
			return fmt.Errorf("job %s already fired", id)
		}
		next, err := NextFire(job, now)
		if err != nil {
			return err
		}
		job.Enabled = true
		job.NextFire = next
		return nil
	})
}

// Get returns a copy of one job.
func (s *Scheduler) Get(id string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	c := *job
	return &c, nil
}

// Jobs returns every job ordered by next fire time.
func (s *Scheduler) Jobs() []models.Job {
	s.mu.Lock()
	out := make([]models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Enabled != out[j].Enabled {
			return out[i].Enabled
		}
		if !out[i].NextFire.Equal(out[j].NextFire) {
			return out[i].NextFire.Before(out[j].NextFire)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Run polls for due jobs until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.logger.Info().Dur("poll_interval", s.cfg.PollInterval).Msg("scheduler started")
	s.RunDue(ctx, s.now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunDue(ctx, s.now())
		}
	}
}

// RunDue fires every enabled job whose NextFire is at or before now and
// returns how many fired. Callbacks run without the lock held so they may
// add or remove jobs.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	var due []models.Job
	for _, job := range s.jobs {
		if job.Enabled && !job.NextFire.After(now) {
			due = append(due, *job)
		}
	}
	callbacks := append([]Callback(nil), s.callbacks...)
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].NextFire.Before(due[j].NextFire) })

	fired := 0
	for _, job := range due {
		if ctx.Err() != nil {
			break
		}
		s.fire(ctx, job, now, callbacks)
		fired++
	}
	return fired
}

func (s *Scheduler) fire(ctx context.Context, job models.Job, now time.Time, callbacks []Callback) {
	log := s.logger.With().Str("job_id", job.ID).Str("job", job.Name).Logger()

	maxAttempts := s.cfg.MaxRetries + 1
	var (
		err      error
		attempts int
	)
	for attempts = 1; attempts <= maxAttempts; attempts++ {
		err = s.runCallbacks(ctx, job, callbacks)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempts).Msg("job callback failed")
		if attempts == maxAttempts {
			break
		}
		if serr := s.sleep(ctx, s.cfg.Backoff.Delay(attempts)); serr != nil {
			err = fmt.Errorf("%w (retry aborted: %v)", err, serr)
			break
		}
	}

	_, uerr := s.update(job.ID, func(stored *models.Job, current time.Time) error {
		stored.LastFired = now
		stored.FireCount++
		stored.LastError = ""
		if err != nil {
			stored.LastError = err.Error()
		}
		if stored.Kind == models.JobOnce {
			stored.Enabled = false
			return nil
		}
		next, nerr := Reschedule(stored, now, current)
		if nerr != nil {
			stored.Enabled = false
			stored.LastError = nerr.Error()
			return nil
		}
		stored.NextFire = next
		return nil
	})
	if uerr != nil && !errors.Is(uerr, ErrJobNotFound) {
		log.Error().Err(uerr).Msg("failed to record job fire")
	}

	outcome := "success"
	risk := models.RiskLow
	data := map[string]any{
		"job_id":   job.ID,
		"success":  err == nil,
		"attempts": attempts,
	}
	if err != nil {
		outcome = "failure"
		risk = models.RiskMedium
		data["error"] = err.Error()
	}
	metrics.JobFires.WithLabelValues(outcome).Inc()
	s.emit(models.EventJobFired, risk, job.Name, data)
}

func (s *Scheduler) runCallbacks(ctx context.Context, job models.Job, callbacks []Callback) error {
	var errs []error
	for _, cb := range callbacks {
		if err := safeCall(ctx, cb, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func safeCall(ctx context.Context, cb Callback, job models.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panicked: %v", r)
		}
	}()
	return cb(ctx, job)
}

// update applies fn to a stored job and persists the result. The stored
// job is only replaced when fn and the save both succeed.
func (s *Scheduler) update(id string, fn func(*models.Job, time.Time) error) (*models.Job, error) {
	s.mu.Lock()
	current, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	next := *current
	if err := fn(&next, s.now()); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.repo.SaveJob(&next); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("save job: %w", err)
	}
	s.jobs[id] = &next
	s.mu.Unlock()

	s.updateGauge()
	c := next
	return &c, nil
}

func (s *Scheduler) updateGauge() {
	s.mu.Lock()
	enabled := 0
	for _, job := range s.jobs {
		if job.Enabled {
			enabled++
		}
	}
	s.mu.Unlock()
	metrics.ScheduledJobs.Set(float64(enabled))
}

func (s *Scheduler) emit(t models.EventType, risk models.RiskLevel, msg string, data map[string]any) {
	s.emitter.Emit(models.Event{
		Type:    t,
		Agent:   agentName,
		Risk:    risk,
		Message: msg,
		Data:    data,
	})
}
