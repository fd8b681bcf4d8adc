package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/steward/internal/capability"
	"github.com/ShayCichocki/steward/internal/capability/skills"
	"github.com/ShayCichocki/steward/internal/config"
	"github.com/ShayCichocki/steward/internal/eventlog"
	"github.com/ShayCichocki/steward/internal/intent"
	"github.com/ShayCichocki/steward/internal/logging"
	"github.com/ShayCichocki/steward/internal/orchestrator"
	"github.com/ShayCichocki/steward/internal/procedure"
	"github.com/ShayCichocki/steward/internal/protect"
	"github.com/ShayCichocki/steward/internal/provider"
	"github.com/ShayCichocki/steward/internal/scheduler"
	"github.com/ShayCichocki/steward/internal/state"
	"github.com/ShayCichocki/steward/internal/taskqueue"
	"github.com/ShayCichocki/steward/pkg/models"
)

// retentionCommand is the command of the built-in job that sweeps old event partitions.
const retentionCommand = "@retention"

// app holds every component of one steward process. Nothing in steward is a
// package-level singleton; commands build an app and pass it around.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	store  *state.Store
	events *eventlog.Log
	feed   *eventlog.Feed

	engine     *provider.Engine
	session    *intent.Session
	dispatcher *intent.Dispatcher
	registry   *capability.Registry
	quality    *capability.QualityChecker
	procedures *procedure.Matcher
	tasks      *taskqueue.Queue
	scheduler  *scheduler.Scheduler
	orch       *orchestrator.Orchestrator

	closers []io.Closer
}

type appOptions struct {
	// follow attaches a live feed to the event log.
	follow bool
	// quiet routes diagnostic logs to a file or drops them, for full-screen views.
	quiet bool
}

// loadConfig honors --config when set.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

// newApp builds the component graph from configuration, leaf first.
func newApp(opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if err := a.initLogger(opts.quiet); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	a.store, err = state.OpenStore(cfg.Storage.Backend, cfg.Storage.Driver, cfg.Storage.Dir, cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, a.store)

	logOpts := []eventlog.Option{eventlog.WithLogger(logging.Component(a.logger, "eventlog"))}
	if opts.follow {
		a.feed = eventlog.NewFeed(256, a.logger)
		logOpts = append(logOpts, eventlog.WithFeed(a.feed))
	}
	a.events, err = eventlog.Open(cfg.Events.Dir, logOpts...)
	if err != nil {
		return nil, err
	}

	providers, err := provider.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("build providers: %w", err)
	}
	a.engine, err = provider.NewEngine(provider.EngineConfig(cfg), providers,
		provider.WithEmitter(a.events),
		provider.WithLogger(logging.Component(a.logger, "provider")),
	)
	if err != nil {
		return nil, fmt.Errorf("provider engine: %w", err)
	}

	ops := intent.NewOSOperations()
	guard := protect.New(ops.Root, config.GetUserConfigDir())
	guard.Extend(cfg.Protect)
	// steward's own data is never a casual delete target.
	guard.Extend(protect.Rules{Patterns: []string{filepath.ToSlash(filepath.Clean(cfg.Storage.Dir)) + "/**"}})

	a.session = intent.NewSession()
	a.dispatcher = intent.NewDispatcher(intent.DefaultDetectors(intent.RuleConfig{
		Ops:                ops,
		Session:            a.session,
		DestructiveAllowed: cfg.Orchestrator.DestructiveAllowed,
		Guard:              guard,
	}), intent.WithEmitter(a.events), intent.WithLogger(logging.Component(a.logger, "intent")))

	a.tasks, err = taskqueue.New(a.store.Tasks,
		taskqueue.WithEmitter(a.events),
		taskqueue.WithLogger(logging.Component(a.logger, "taskqueue")),
		taskqueue.WithMaxRetries(cfg.Tasks.MaxRetries),
		taskqueue.WithBoardLimit(cfg.Tasks.BoardLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	a.scheduler, err = scheduler.New(a.store.Jobs, scheduler.Config{
		PollInterval: cfg.Scheduler.PollInterval,
		MaxRetries:   cfg.Scheduler.MaxRetries,
		Backoff:      cfg.Scheduler.Backoff,
	}, scheduler.WithEmitter(a.events), scheduler.WithLogger(logging.Component(a.logger, "scheduler")))
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}

	a.registry = capability.NewRegistry(logging.Component(a.logger, "capability"))
	for _, h := range []capability.Handler{
		skills.NewScheduling(a.scheduler),
		skills.NewCopywriting(a.engine),
	} {
		if err := a.registry.Register(h); err != nil {
			return nil, err
		}
	}
	a.quality = capability.NewQualityChecker(cfg.Orchestrator.QualityCategories)

	procs, err := procedure.LoadDir(cfg.Procedures.Dir)
	if err != nil {
		// A broken definition file should not keep the rest of steward down.
		a.logger.Warn().Err(err).Str("dir", cfg.Procedures.Dir).Msg("procedures not loaded")
	}
	a.procedures = procedure.NewMatcher(procs)

	a.orch, err = orchestrator.New(orchestrator.Deps{
		Dispatcher: a.dispatcher,
		Registry:   a.registry,
		Quality:    a.quality,
		Procedures: a.procedures,
		Tasks:      a.tasks,
		Generator:  a.engine,
		Emitter:    a.events,
		Logger:     logging.Component(a.logger, "orchestrator"),
		Threshold:  cfg.Orchestrator.CapabilityThreshold,
	})
	if err != nil {
		return nil, err
	}

	a.scheduler.OnFire(a.fire)

	ok = true
	return a, nil
}

func (a *app) initLogger(quiet bool) error {
	switch {
	case a.cfg.Log.File != "":
		l, closer, err := logging.File(a.cfg.Log.Level, a.cfg.Log.File)
		if err != nil {
			return err
		}
		a.logger = l
		a.closers = append(a.closers, closer)
	case quiet:
		a.logger = zerolog.Nop()
	default:
		a.logger = logging.Console(a.cfg.Log.Level)
	}
	return nil
}

// fire is the scheduler callback. The built-in retention job sweeps the event
// log; every other job is routed like a user request.
func (a *app) fire(ctx context.Context, job models.Job) error {
	if job.Command == retentionCommand {
		return a.sweepEvents()
	}
	out, err := a.orch.Handle(ctx, orchestrator.Request{
		Text:   job.Command,
		Source: "scheduler",
		JobID:  job.ID,
	})
	if err != nil {
		return err
	}
	if out.Action != nil && !out.Action.Success {
		return errors.New(out.Action.Message)
	}
	return nil
}

func (a *app) sweepEvents() error {
	removed, err := a.events.Sweep(a.cfg.Events.RetentionDays)
	if err != nil {
		return fmt.Errorf("sweep events: %w", err)
	}
	a.events.Emit(models.Event{
		Type:    models.EventRetentionSweep,
		Agent:   "steward",
		Message: fmt.Sprintf("removed %d event partition(s)", removed),
		Data:    map[string]any{"removed": removed, "retention_days": a.cfg.Events.RetentionDays},
	})
	return nil
}

// ensureRetentionJob registers the daily sweep once; later runs reuse the stored job.
func (a *app) ensureRetentionJob() error {
	for _, j := range a.scheduler.Jobs() {
		if j.Command == retentionCommand {
			return nil
		}
	}
	_, err := a.scheduler.AddJob(models.Job{
		Name:      "event retention sweep",
		Command:   retentionCommand,
		Kind:      models.JobDaily,
		TimeOfDay: "03:15",
	})
	return err
}

// handle routes one request from a front end.
func (a *app) handle(ctx context.Context, text, source, preferred string) (*orchestrator.Outcome, error) {
	return a.orch.Handle(ctx, orchestrator.Request{Text: text, Source: source, Provider: preferred})
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// requestTimeout bounds one foreground request end to end.
const requestTimeout = 5 * time.Minute
