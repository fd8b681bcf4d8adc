package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/steward/internal/capability"
	"github.com/ShayCichocki/steward/internal/eventlog"
	"github.com/ShayCichocki/steward/internal/intent"
	"github.com/ShayCichocki/steward/internal/metrics"
	"github.com/ShayCichocki/steward/internal/procedure"
	"github.com/ShayCichocki/steward/internal/provider"
	"github.com/ShayCichocki/steward/internal/taskqueue"
	"github.com/ShayCichocki/steward/pkg/models"
)

const (
	agentName        = "orchestrator"
	generatorAgent   = "generator"
	procedureAgent   = "procedure"
	confirmAgent     = "intent"
	defaultThreshold = 0.6
	maxTitleLen      = 120
	maxResultLen     = 200
)

// Path names the stage that handled a request.
type Path string

const (
	PathIntent          Path = "intent"
	PathCapability      Path = "capability"
	PathProcedure       Path = "procedure"
	PathGenerateSimple  Path = "generate_simple"
	PathGenerateComplex Path = "generate_complex"
	// PathRejected marks input that was never routed.
	PathRejected        Path = "rejected"
)

// ErrEmptyRequest is returned for blank input.
var ErrEmptyRequest = errors.New("empty request")

// Normalizer rewrites request text before routing.
type Normalizer interface {
	Normalize(text string) (string, error)
}

// NormalizerFunc adapts a function to Normalizer.
type NormalizerFunc func(string) (string, error)

// Normalize calls f.
func (f NormalizerFunc) Normalize(text string) (string, error) { return f(text) }

// Generator produces open-ended responses. *provider.Engine satisfies it.
type Generator interface {
	Send(ctx context.Context, req provider.Request, opts provider.SendOptions) (*provider.Response, error)
}

// Request is one inbound request.
type Request struct {
	Text string
	// Source names where the request came from, e.g. "cli" or "scheduler".
	Source string
	// JobID is set when the scheduler fired the request.
	JobID string
	// Provider asks the engine to try this provider first.
	Provider string
}

// Outcome is what Handle decided and produced.
type Outcome struct {
	Action *models.Action
	Path   Path
	// TaskID is the task tracking this request, if one was created.
	TaskID    string
	Detector  string
	Handler   string
	Score     float64
	Procedure string
	Quality   *capability.QualityReport
	// Complexity is set on the generation paths.
	Complexity *Complexity
}

// Deps are the collaborators of an Orchestrator. Dispatcher, Registry,
// Procedures and Normalizer are optional; Tasks and Generator are required.
type Deps struct {
	Dispatcher *intent.Dispatcher
	Registry   *capability.Registry
	Quality    *capability.QualityChecker
	Procedures *procedure.Matcher
	Tasks      *taskqueue.Queue
	Generator  Generator
	Normalizer Normalizer
	Emitter    eventlog.Emitter
	Logger     zerolog.Logger
	// Threshold is the minimum capability score. Zero means 0.6.
	Threshold  float64
	Complexity *ComplexityPolicy
}

// Orchestrator routes requests. It is safe for concurrent use.
type Orchestrator struct {
	d          Deps
	complexity ComplexityPolicy

	mu sync.Mutex
	// awaiting is the task parked in waiting_confirm for the session's
	// pending question.
	awaiting string
}

// New validates deps and returns an Orchestrator.
func New(d Deps) (*Orchestrator, error) {
	if d.Generator == nil {
		return nil, errors.New("orchestrator: generator is required")
	}
	if d.Tasks == nil {
		return nil, errors.New("orchestrator: task queue is required")
	}
	if d.Emitter == nil {
		d.Emitter = eventlog.Nop{}
	}
	if d.Threshold <= 0 {
		d.Threshold = defaultThreshold
	}
	policy := DefaultComplexityPolicy()
	if d.Complexity != nil {
		policy = *d.Complexity
	}
	return &Orchestrator{d: d, complexity: policy}, nil
}

// Handle routes one request and emits exactly one routing_decision event.
// Only generation failures are returned as errors; every earlier stage
// downgrades its failures to "not handled".
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Outcome, error) {
	text := o.normalize(req.Text)
	if text == "" {
		o.recordDecision(req, text, &Outcome{Path: PathRejected}, ErrEmptyRequest, 0)
		return nil, ErrEmptyRequest
	}

	start := time.Now()
	out, err := o.route(ctx, req, text)
	o.recordDecision(req, text, out, err, time.Since(start))
	return out, err
}

func (o *Orchestrator) route(ctx context.Context, req Request, text string) (*Outcome, error) {
	var delegated *models.Action
	var delegatedBy string

	if o.d.Dispatcher != nil {
		action, detector := o.d.Dispatcher.Evaluate(text)
		if action != nil && !action.IsDelegate() {
			return o.finishIntent(action, detector), nil
		}
		if action != nil {
			delegated, delegatedBy = action, detector
		}
	}

	if out, ok := o.tryCapability(ctx, text); ok {
		out.Detector = delegatedBy
		return out, nil
	}

	if out, ok, err := o.tryProcedure(ctx, text); ok {
		return out, err
	}

	prompt := text
	if delegated != nil && delegated.Payload["request"] != "" {
		prompt = delegated.Payload["request"]
	}
	out, err := o.generate(ctx, req, text, prompt)
	out.Detector = delegatedBy
	return out, err
}

func (o *Orchestrator) normalize(raw string) (text string) {
	text = strings.TrimSpace(raw)
	if o.d.Normalizer == nil || text == "" {
		return text
	}
	defer func() {
		if r := recover(); r != nil {
			o.d.Logger.Warn().Interface("panic", r).Msg("normalizer panicked, using original text")
			text = strings.TrimSpace(raw)
		}
	}()
	normalized, err := o.d.Normalizer.Normalize(text)
	if err != nil {
		o.d.Logger.Warn().Err(err).Msg("normalizer failed, using original text")
		return text
	}
	if normalized = strings.TrimSpace(normalized); normalized == "" {
		return text
	}
	return normalized
}

func (o *Orchestrator) finishIntent(action *models.Action, detector string) *Outcome {
	action.Risk = ClassifyRisk(action)
	attachProof(action)
	out := &Outcome{Action: action, Path: PathIntent, Detector: detector}
	out.TaskID = o.trackConfirmation(action, detector)
	return out
}

// trackConfirmation mirrors the session's pending question as a task in
// waiting_confirm, and settles it when the question is answered.
func (o *Orchestrator) trackConfirmation(action *models.Action, detector string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	tasks := o.d.Tasks

	switch {
	case action.Type == models.ActionClarify && action.NextStep == "confirm":
		if o.awaiting != "" {
			// A new question replaces the old one in the session.
			o.settle(o.awaiting, models.TaskStatusCancelled, &models.TaskResult{Message: "superseded"})
		}
		task, err := tasks.Create(taskqueue.NewTask{Title: truncate(action.Message, maxTitleLen), Agent: confirmAgent})
		if err != nil {
			o.d.Logger.Warn().Err(err).Msg("could not record confirmation task")
			o.awaiting = ""
			return ""
		}
		o.settle(task.ID, models.TaskStatusInProgress, nil)
		o.settle(task.ID, models.TaskStatusWaitingConfirm, nil)
		o.awaiting = task.ID
		return task.ID

	case detector == intent.DetectorConfirmPending && o.awaiting != "":
		id := o.awaiting
		o.awaiting = ""
		o.settle(id, models.TaskStatusInProgress, nil)
		to := models.TaskStatusDone
		if !action.Success {
			to = models.TaskStatusFailed
		}
		o.settle(id, to, &models.TaskResult{Success: action.Success, Message: action.Message, Proof: action.Proof})
		return id

	case detector == intent.DetectorCancelPending && o.awaiting != "":
		id := o.awaiting
		o.awaiting = ""
		o.settle(id, models.TaskStatusCancelled, &models.TaskResult{Message: action.Message})
		return id
	}
	return ""
}

// settle applies a transition, logging rather than returning failures.
func (o *Orchestrator) settle(id string, to models.TaskStatus, result *models.TaskResult) {
	if _, err := o.d.Tasks.Transition(id, to, result); err != nil {
		o.d.Logger.Warn().Err(err).Str("task_id", id).Msg("task transition failed")
	}
}

func (o *Orchestrator) tryCapability(ctx context.Context, text string) (*Outcome, bool) {
	if o.d.Registry == nil {
		return nil, false
	}
	m, ok := o.d.Registry.Best(text, o.d.Threshold)
	if !ok {
		return nil, false
	}
	name := m.Handler.Name()

	action, err := o.d.Registry.Execute(ctx, m.Handler, text)
	if err != nil {
		o.d.Logger.Warn().Err(err).Str("handler", name).Msg("capability handler failed")
		o.emit(models.EventCapabilityError, "", models.RiskMedium, err.Error(), map[string]any{
			"handler": name,
			"score":   m.Score,
		})
		return nil, false
	}

	out := &Outcome{Action: action, Path: PathCapability, Handler: name, Score: m.Score}
	category := m.Handler.Category()
	if o.d.Quality != nil {
		if report, ok := o.d.Quality.Check(category, action.Message); ok {
			action.Message = strings.TrimRight(action.Message, "\n") + "\n\n" + report.Badge()
			out.Quality = &report
			risk := models.RiskLow
			if !report.Passed {
				risk = models.RiskMedium
			}
			o.emit(models.EventQualityCheck, "", risk, report.Badge(), map[string]any{
				"handler":  name,
				"category": category,
				"score":    report.Score,
				"passed":   report.Passed,
				"failed":   report.Failed,
			})
		}
	}
	return out, true
}

func (o *Orchestrator) generate(ctx context.Context, req Request, text, prompt string) (*Outcome, error) {
	c := o.complexity.Classify(text)
	out := &Outcome{Path: PathGenerateSimple, Complexity: &c}

	if !c.Complex {
		resp, err := o.send(ctx, req, prompt)
		if err != nil {
			return out, err
		}
		out.Action = generatedAction(resp)
		return out, nil
	}

	out.Path = PathGenerateComplex
	task, err := o.d.Tasks.Create(taskqueue.NewTask{Title: truncate(text, maxTitleLen), Agent: generatorAgent})
	if err != nil {
		o.d.Logger.Warn().Err(err).Msg("could not record task for complex request")
	} else {
		out.TaskID = task.ID
		o.settle(task.ID, models.TaskStatusInProgress, nil)
	}

	resp, err := o.send(ctx, req, prompt)
	if err != nil {
		if out.TaskID != "" {
			o.settle(out.TaskID, models.TaskStatusFailed, &models.TaskResult{Message: truncate(err.Error(), maxResultLen)})
		}
		return out, err
	}
	out.Action = generatedAction(resp)
	if out.TaskID != "" {
		o.settle(out.TaskID, models.TaskStatusDone, &models.TaskResult{Success: true, Message: summarize(resp.Text)})
	}
	return out, nil
}

func (o *Orchestrator) send(ctx context.Context, req Request, prompt string) (*provider.Response, error) {
	resp, err := o.d.Generator.Send(ctx, provider.Request{Prompt: prompt}, provider.SendOptions{Preferred: req.Provider})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return resp, nil
}

func generatedAction(resp *provider.Response) *models.Action {
	return &models.Action{
		Type:    models.ActionGenerate,
		Success: true,
		Message: resp.Text,
		Risk:    models.RiskLow,
		Source:  "generation",
		Payload: map[string]string{
			"provider": resp.Provider,
			"model":    resp.Model,
			"fallback": strconv.FormatBool(resp.Fallback),
		},
	}
}

func (o *Orchestrator) recordDecision(req Request, text string, out *Outcome, err error, elapsed time.Duration) {
	path := out.Path
	metrics.RoutingDecisions.WithLabelValues(string(path)).Inc()

	data := map[string]any{
		"path":        string(path),
		"duration_ms": elapsed.Milliseconds(),
	}
	for k, v := range map[string]string{
		"source":    req.Source,
		"job_id":    req.JobID,
		"detector":  out.Detector,
		"handler":   out.Handler,
		"procedure": out.Procedure,
	} {
		if v != "" {
			data[k] = v
		}
	}
	if out.Complexity != nil {
		data["complexity"] = out.Complexity.Reason
	}

	risk := models.RiskLow
	if out.Action != nil && out.Action.Risk.Valid() {
		risk = out.Action.Risk
	}
	if err != nil {
		data["error"] = err.Error()
		risk = models.RiskMedium
	}

	o.emit(models.EventRoutingDecision, out.TaskID, risk, string(path)+": "+truncate(text, maxTitleLen), data)
	o.d.Logger.Debug().Str("path", string(path)).Dur("elapsed", elapsed).Err(err).Msg("routed request")
}

func (o *Orchestrator) emit(t models.EventType, taskID string, risk models.RiskLevel, msg string, data map[string]any) {
	o.d.Emitter.Emit(models.Event{
		Type:    t,
		Agent:   agentName,
		TaskID:  taskID,
		Risk:    risk,
		Message: msg,
		Data:    data,
	})
}

// summarize returns the first line of text, truncated for a task result.
func summarize(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return truncate(line, maxResultLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
