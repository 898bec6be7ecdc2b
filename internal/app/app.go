// Package app wires configuration, dependencies, and run modes together.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/colehagen/esportsbot/internal/config"
)

// App is the top-level application. It owns dependency lifecycles and runs
// the services for the configured mode.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	cleanup func()
}

// New creates an App from validated configuration.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies and blocks running the configured mode until the
// context is cancelled or a service fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting",
		slog.String("mode", a.cfg.Mode),
		slog.Float64("bankroll", a.cfg.Trading.Bankroll),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.cleanup = cleanup

	switch a.cfg.Mode {
	case "trade":
		return a.runTrade(ctx, deps)
	case "monitor":
		return a.runMonitor(ctx, deps)
	case "server":
		return a.runServer(ctx, deps)
	case "full":
		return a.runFull(ctx, deps)
	default:
		return fmt.Errorf("app: unknown mode %q", a.cfg.Mode)
	}
}

// Close releases wired dependencies. Safe to call after a failed Run.
func (a *App) Close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
	a.logger.Info("stopped")
}
