package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/steward/internal/logging"
	"github.com/ShayCichocki/steward/internal/metrics"
	"github.com/ShayCichocki/steward/internal/procedure"
	"github.com/ShayCichocki/steward/internal/state"
	"github.com/ShayCichocki/steward/pkg/models"
)

var serveFollow bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler in the foreground",
	Long: `Run steward as a long-lived process.

serve fires scheduled jobs, hot-reloads procedure definitions, sweeps old
event partitions once a day, and exposes Prometheus metrics when
metrics.addr is set.

Tasks left in_progress by a previous process are marked failed at startup
so they can be retried.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVarP(&serveFollow, "follow", "f", false, "Print events as they are written")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{follow: serveFollow})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.recoverOnStartup(); err != nil {
		return err
	}
	if err := a.ensureRetentionJob(); err != nil {
		return fmt.Errorf("register retention job: %w", err)
	}

	if a.cfg.Procedures.Watch {
		if err := os.MkdirAll(a.cfg.Procedures.Dir, 0755); err != nil {
			return fmt.Errorf("create procedures dir: %w", err)
		}
		w, err := procedure.NewWatcher(a.cfg.Procedures.Dir, a.procedures, logging.Component(a.logger, "procedure"))
		if err != nil {
			a.logger.Warn().Err(err).Msg("procedure watcher disabled")
		} else {
			a.closers = append(a.closers, w)
		}
	}

	if a.cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error().Err(err).Str("addr", a.cfg.Metrics.Addr).Msg("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.logger.Info().Str("addr", a.cfg.Metrics.Addr).Msg("serving metrics")
	}

	if a.feed != nil {
		go followEvents(ctx, a.feed.Events())
	}

	a.logger.Info().
		Int("jobs", len(a.scheduler.Jobs())).
		Int("procedures", len(a.procedures.Procedures())).
		Strs("providers", a.engine.Names()).
		Msg("steward serving")

	err = a.scheduler.Run(ctx)
	if errors.Is(err, context.Canceled) {
		a.logger.Info().Msg("shutting down")
		return nil
	}
	return err
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// recoverOnStartup reports leftover work and fails tasks that were
// interrupted mid-flight.
func (a *app) recoverOnStartup() error {
	info, err := state.CheckRecovery(a.store.Tasks, a.store.Jobs, time.Now())
	if err != nil {
		return fmt.Errorf("check recovery: %w", err)
	}
	if !info.HasWork() {
		return nil
	}
	a.logger.Info().Str("summary", info.Summary()).Msg("recovering previous run")

	ids, err := a.tasks.FailInterrupted("interrupted by restart")
	if err != nil {
		return fmt.Errorf("fail interrupted tasks: %w", err)
	}
	if len(ids) > 0 {
		a.logger.Warn().Strs("tasks", ids).Msg("interrupted tasks marked failed")
	}
	return nil
}

func followEvents(ctx context.Context, events <-chan models.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			printEvent(e)
		}
	}
}

func printEvent(e models.Event) {
	ts := e.Timestamp.Local().Format("15:04:05")
	risk := riskColor(e.Risk).Sprintf("%-6s", e.Risk)
	task := ""
	if e.TaskID != "" {
		task = color.HiBlackString(" [" + shortID(e.TaskID) + "]")
	}
	fmt.Printf("%s %s %-20s %s%s\n", color.HiBlackString(ts), risk, e.Type, e.Message, task)
}
