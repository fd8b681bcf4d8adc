package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/steward/internal/capability"
	"github.com/ShayCichocki/steward/internal/eventlog"
	"github.com/ShayCichocki/steward/internal/intent"
	"github.com/ShayCichocki/steward/internal/procedure"
	"github.com/ShayCichocki/steward/internal/provider"
	"github.com/ShayCichocki/steward/internal/taskqueue"
	"github.com/ShayCichocki/steward/pkg/models"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (g *fakeGenerator) Send(_ context.Context, req provider.Request, _ provider.SendOptions) (*provider.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, req.Prompt)
	if g.err != nil {
		return nil, g.err
	}
	return &provider.Response{Text: "generated: " + req.Prompt, Provider: "fake", Model: "fake-1"}, nil
}

func (g *fakeGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

type fakeHandler struct {
	name     string
	category string
	score    float64
	message  string
	err      error

	mu    sync.Mutex
	execs []string
}

func (h *fakeHandler) Name() string                  { return h.name }
func (h *fakeHandler) Category() string              { return h.category }
func (h *fakeHandler) RiskCeiling() models.RiskLevel { return models.RiskMedium }
func (h *fakeHandler) Score(string) float64          { return h.score }

func (h *fakeHandler) Execute(_ context.Context, request string) (*models.Action, error) {
	h.mu.Lock()
	h.execs = append(h.execs, request)
	h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	msg := h.message
	if msg == "" {
		msg = h.name + " handled " + request
	}
	return &models.Action{Type: models.ActionCapability, Success: true, Message: msg}, nil
}

func (h *fakeHandler) Execs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.execs)
}

type memRepo struct {
	mu    sync.Mutex
	tasks map[string]models.Task
}

func (r *memRepo) LoadTasks() ([]models.Task, error) { return nil, nil }

func (r *memRepo) SaveTask(t *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tasks == nil {
		r.tasks = make(map[string]models.Task)
	}
	r.tasks[t.ID] = *t
	return nil
}

type fakeOps struct {
	deleted []string
}

func (o *fakeOps) OpenApp(context.Context, string) error      { return nil }
func (o *fakeOps) CreateFolder(context.Context, string) error { return nil }
func (o *fakeOps) SystemInfo(context.Context) (string, error) { return "linux/amd64", nil }
func (o *fakeOps) DeletePath(_ context.Context, path string) error {
	o.deleted = append(o.deleted, path)
	return nil
}

var errExhausted = &provider.ExhaustedError{Failures: []provider.Failure{
	{Provider: "a", Message: "HTTP 429", RateLimited: true, At: time.Now()},
}}

var errHandlerBroken = errors.New("handler backend down")

type env struct {
	orch     *Orchestrator
	gen      *fakeGenerator
	registry *capability.Registry
	tasks    *taskqueue.Queue
	rec      *eventlog.Recorder
}

type envOption func(*Deps)

func withDetectors(dets ...intent.Detector) envOption {
	return func(d *Deps) { d.Dispatcher = intent.NewDispatcher(dets, intent.WithEmitter(d.Emitter)) }
}

func withHandlers(t *testing.T, hs ...capability.Handler) envOption {
	return func(d *Deps) {
		for _, h := range hs {
			require.NoError(t, d.Registry.Register(h))
		}
	}
}

func withProcedures(t *testing.T, docs ...string) envOption {
	return func(d *Deps) {
		var procs []*procedure.Procedure
		for i, doc := range docs {
			p, err := procedure.Parse([]byte(doc), "test-"+string(rune('a'+i)))
			require.NoError(t, err)
			procs = append(procs, p)
		}
		d.Procedures = procedure.NewMatcher(procs)
	}
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	rec := &eventlog.Recorder{}
	queue, err := taskqueue.New(&memRepo{}, taskqueue.WithEmitter(rec))
	require.NoError(t, err)

	gen := &fakeGenerator{}
	deps := Deps{
		Registry:  capability.NewRegistry(zerolog.Nop()),
		Quality:   capability.NewQualityChecker([]string{"marketing"}),
		Tasks:     queue,
		Generator: gen,
		Emitter:   rec,
		Logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	orch, err := New(deps)
	require.NoError(t, err)
	return &env{orch: orch, gen: gen, registry: deps.Registry, tasks: queue, rec: rec}
}

func (e *env) decisions() []models.Event {
	return e.rec.OfType(models.EventRoutingDecision)
}

func staticDetector(name string, action *models.Action) intent.Detector {
	return intent.Detector{Name: name, Detect: func(string) (*models.Action, error) {
		if action == nil {
			return nil, nil
		}
		a := *action
		return &a, nil
	}}
}
