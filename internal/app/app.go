// Package app wires the journal pipeline together and runs one mode per
// invocation: clean, publish, full or archive.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradejournal/internal/config"
	"github.com/alanyoungcy/tradejournal/internal/notify"
)

// notifyTimeout bounds delivery of the run summary, which is sent even when
// the run context has been cancelled.
const notifyTimeout = 15 * time.Second

// App owns the configuration, the logger and the cleanup functions
// registered while wiring.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	now     func() time.Time
	closers []func()
}

// New creates an App.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		now:    time.Now,
	}
}

// Run wires the dependencies for the configured mode and executes it.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting run",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	return a.Execute(ctx, deps)
}

// Execute runs the configured mode against deps, then logs and sends the
// run summary.
func (a *App) Execute(ctx context.Context, deps *Dependencies) error {
	mode := strings.ToLower(a.cfg.Mode)
	sum := notify.RunSummary{RunID: uuid.NewString(), Mode: mode}
	start := a.now()

	var err error
	switch mode {
	case "clean":
		_, err = a.CleanMode(ctx, deps, &sum)
	case "publish":
		err = a.PublishMode(ctx, deps, &sum)
	case "full":
		err = a.FullMode(ctx, deps, &sum)
	case "archive":
		err = a.ArchiveMode(ctx, deps, &sum)
	default:
		err = fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}

	sum.Elapsed = a.now().Sub(start)
	sum.Err = err
	a.report(ctx, deps, sum)
	return err
}

// report logs the summary and forwards it to the notifier.
func (a *App) report(ctx context.Context, deps *Dependencies, sum notify.RunSummary) {
	attrs := []any{
		slog.String("run_id", sum.RunID),
		slog.String("mode", sum.Mode),
		slog.Int("trades", sum.Written),
		slog.Int("rows_rejected", sum.RowErrors),
		slog.Int("failed_records", sum.Failed),
		slog.Duration("elapsed", sum.Elapsed),
	}
	if sum.Err != nil {
		a.logger.ErrorContext(ctx, "run failed", append(attrs, slog.String("error", sum.Err.Error()))...)
	} else {
		a.logger.InfoContext(ctx, "run complete", attrs...)
	}

	if deps.Notifier == nil || !deps.Notifier.Enabled() {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := deps.Notifier.NotifyRun(nctx, sum); err != nil {
		a.logger.WarnContext(ctx, "run notification failed", slog.String("error", err.Error()))
	}
}

// Close runs the registered cleanup functions in reverse order. Later calls
// are no-ops.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
