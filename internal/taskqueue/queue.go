package taskqueue

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ShayCichocki/steward/internal/eventlog"
	"github.com/ShayCichocki/steward/internal/metrics"
	"github.com/ShayCichocki/steward/pkg/models"
)

const (
	agentName         = "task_queue"
	defaultMaxRetries = 3
	defaultBoardLimit = 50
)

// Repository persists tasks. SaveTask must be durable before it returns.
type Repository interface {
	LoadTasks() ([]models.Task, error)
	SaveTask(task *models.Task) error
}

// NewTask describes a task to create.
type NewTask struct {
	Title      string
	Agent      string
	ParentID   string
	OrderIndex int
	// MaxRetries overrides the queue default when positive.
	MaxRetries int
}

// Board groups tasks by status.
type Board struct {
	Columns map[models.TaskStatus][]*models.Task
	Counts  map[models.TaskStatus]int
}

// Queue is the in-memory view of all tasks, backed by a Repository.
type Queue struct {
	repo       Repository
	emitter    eventlog.Emitter
	logger     zerolog.Logger
	now        func() time.Time
	newID      func() string
	maxRetries int
	boardLimit int

	mu    sync.RWMutex
	tasks map[string]*models.Task
}

// Option configures a Queue.
type Option func(*Queue)

// WithEmitter sets the audit event sink.
func WithEmitter(e eventlog.Emitter) Option {
	return func(q *Queue) { q.emitter = e }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithMaxRetries sets the default retry budget for new tasks.
func WithMaxRetries(n int) Option {
	return func(q *Queue) {
		if n >= 0 {
			q.maxRetries = n
		}
	}
}

// WithBoardLimit caps tasks per board column.
func WithBoardLimit(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.boardLimit = n
		}
	}
}

// New loads every task from repo.
func New(repo Repository, opts ...Option) (*Queue, error) {
	q := &Queue{
		repo:       repo,
		emitter:    eventlog.Nop{},
		logger:     zerolog.Nop(),
		now:        time.Now,
		newID:      func() string { return uuid.New().String()[:8] },
		maxRetries: defaultMaxRetries,
		boardLimit: defaultBoardLimit,
		tasks:      make(map[string]*models.Task),
	}
	for _, opt := range opts {
		opt(q)
	}

	loaded, err := repo.LoadTasks()
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	for i := range loaded {
		t := loaded[i]
		if !t.Status.Valid() {
			q.logger.Warn().Str("task_id", t.ID).Str("status", string(t.Status)).Msg("skipping task with unknown status")
			continue
		}
		q.tasks[t.ID] = &t
	}
	return q, nil
}

// Create adds a pending task.
func (q *Queue) Create(nt NewTask) (*models.Task, error) {
	title := strings.TrimSpace(nt.Title)
	if title == "" {
		return nil, errors.New("task title is required")
	}
	maxRetries := q.maxRetries
	if nt.MaxRetries > 0 {
		maxRetries = nt.MaxRetries
	}

	now := q.now()
	task := &models.Task{
		ID:         q.newID(),
		ParentID:   nt.ParentID,
		OrderIndex: nt.OrderIndex,
		Title:      title,
		Agent:      nt.Agent,
		Status:     models.TaskStatusPending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	q.mu.Lock()
	for {
		if _, taken := q.tasks[task.ID]; !taken {
			break
		}
		task.ID = q.newID()
	}
	if nt.ParentID != "" {
		if _, ok := q.tasks[nt.ParentID]; !ok {
			q.mu.Unlock()
			return nil, fmt.Errorf("parent %s: %w", nt.ParentID, ErrNotFound)
		}
	}
	if err := q.repo.SaveTask(task); err != nil {
		q.mu.Unlock()
		return nil, fmt.Errorf("save task: %w", err)
	}
	q.tasks[task.ID] = task
	q.mu.Unlock()

	q.emit(models.EventTaskCreated, task.ID, models.RiskLow, "created: "+task.Title, map[string]any{
		"parent_id": task.ParentID,
		"agent":     task.Agent,
	})
	return task.Clone(), nil
}

// Transition moves a task to a new status. Moving a failed task back to
// pending is a retry and is bounded by the task's retry budget.
func (q *Queue) Transition(id string, to models.TaskStatus, result *models.TaskResult) (*models.Task, error) {
	q.mu.Lock()
	current, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	from := current.Status

	if !CanTransition(from, to) {
		q.mu.Unlock()
		err := &InvalidTransitionError{TaskID: id, From: from, To: to}
		q.emit(models.EventInvalidTransition, id, models.RiskMedium, err.Error(), map[string]any{
			"from": string(from),
			"to":   string(to),
		})
		return nil, err
	}

	retry := from == models.TaskStatusFailed && to == models.TaskStatusPending
	if retry && current.RetryCount >= current.MaxRetries {
		q.mu.Unlock()
		q.emit(models.EventRetryRejected, id, models.RiskLow, "retry limit reached", map[string]any{
			"retry_count": current.RetryCount,
			"max_retries": current.MaxRetries,
		})
		return nil, fmt.Errorf("task %s: %w (%d/%d)", id, ErrRetryLimit, current.RetryCount, current.MaxRetries)
	}

	next := current.Clone()
	next.Status = to
	next.UpdatedAt = q.now()
	switch {
	case retry:
		next.RetryCount++
		next.Result = nil
	case result != nil:
		r := *result
		next.Result = &r
	}

	if err := q.repo.SaveTask(next); err != nil {
		q.mu.Unlock()
		return nil, fmt.Errorf("save task: %w", err)
	}
	q.tasks[id] = next
	q.mu.Unlock()

	metrics.TaskTransitions.WithLabelValues(string(from), string(to)).Inc()
	data := map[string]any{"from": string(from), "to": string(to)}
	if retry {
		data["retry_count"] = next.RetryCount
	}
	msg := fmt.Sprintf("%s -> %s", from, to)
	if next.Result != nil && next.Result.Message != "" {
		msg += ": " + next.Result.Message
	}
	q.emit(models.EventTaskTransition, id, riskFor(to), msg, data)
	return next.Clone(), nil
}

// Retry moves a failed task back to pending.
func (q *Queue) Retry(id string) (*models.Task, error) {
	return q.Transition(id, models.TaskStatusPending, nil)
}

// FailInterrupted marks every in-progress task as failed so it can be
// retried. It is called on startup, before any new work begins.
func (q *Queue) FailInterrupted(reason string) ([]string, error) {
	var ids []string
	for _, t := range q.filter(func(t *models.Task) bool { return t.Status == models.TaskStatusInProgress }) {
		if _, err := q.Transition(t.ID, models.TaskStatusFailed, &models.TaskResult{Message: reason}); err != nil {
			return ids, err
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// Get returns a copy of one task.
func (q *Queue) Get(id string) (*models.Task, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	t, ok := q.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t.Clone(), nil
}

// List returns every task, newest first.
func (q *Queue) List() []*models.Task {
	return q.filter(func(*models.Task) bool { return true })
}

// Active returns pending, in-progress and waiting tasks, newest first.
func (q *Queue) Active() []*models.Task {
	return q.filter(func(t *models.Task) bool { return t.Status.IsActive() })
}

// Children returns a parent's subtasks ordered by OrderIndex.
func (q *Queue) Children(parentID string) []*models.Task {
	children := q.filter(func(t *models.Task) bool { return t.ParentID == parentID })
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].OrderIndex < children[j].OrderIndex
	})
	return children
}

// NextChild returns the first pending child of parentID, if any.
func (q *Queue) NextChild(parentID string) (*models.Task, bool) {
	for _, c := range q.Children(parentID) {
		if c.Status == models.TaskStatusPending {
			return c, true
		}
	}
	return nil, false
}

// Board buckets tasks by status, newest first, capped per column.
func (q *Queue) Board() Board {
	board := Board{
		Columns: make(map[models.TaskStatus][]*models.Task, len(models.TaskStatuses)),
		Counts:  make(map[models.TaskStatus]int, len(models.TaskStatuses)),
	}
	for _, t := range q.List() {
		board.Counts[t.Status]++
		if len(board.Columns[t.Status]) < q.boardLimit {
			board.Columns[t.Status] = append(board.Columns[t.Status], t)
		}
	}
	return board
}

func (q *Queue) filter(keep func(*models.Task) bool) []*models.Task {
	q.mu.RLock()
	out := make([]*models.Task, 0, len(q.tasks))
	for _, t := range q.tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	q.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (q *Queue) emit(t models.EventType, taskID string, risk models.RiskLevel, msg string, data map[string]any) {
	q.emitter.Emit(models.Event{
		Type:    t,
		Agent:   agentName,
		TaskID:  taskID,
		Risk:    risk,
		Message: msg,
		Data:    data,
	})
}

func riskFor(to models.TaskStatus) models.RiskLevel {
	switch to {
	case models.TaskStatusFailed, models.TaskStatusWaitingConfirm:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
