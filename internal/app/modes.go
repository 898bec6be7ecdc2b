package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/dispatch"
	"github.com/colehagen/esportsbot/internal/domain"
	"github.com/colehagen/esportsbot/internal/engine"
	"github.com/colehagen/esportsbot/internal/feed"
	"github.com/colehagen/esportsbot/internal/market"
	"github.com/colehagen/esportsbot/internal/model"
	"github.com/colehagen/esportsbot/internal/risk"
	"github.com/colehagen/esportsbot/internal/server"
	"github.com/colehagen/esportsbot/internal/server/handler"
	"github.com/colehagen/esportsbot/internal/state"
)

const shutdownTimeout = 10 * time.Second

// pipeline bundles the in-memory decision components a running mode shares.
type pipeline struct {
	states   *state.Store
	registry *model.Registry
	markets  *market.Store
	gate     *risk.Gate
	emitter  *engine.Emitter
}

// buildPipeline assembles the event-to-decision path and hooks retirement
// and warning side effects into the wired dependencies.
func buildPipeline(cfg *config.Config, deps *Dependencies, logger *slog.Logger) *pipeline {
	states := state.New(logger)
	registry := model.NewRegistry(cfg.Model, cfg.Registry, logger)
	markets := market.New(cfg.Market.StalenessBound.Duration)
	gate := risk.NewGate(cfg.Trading, logger)
	edges := engine.NewEdgeCalculator(cfg.Trading, cfg.Market)
	sizer := engine.NewSizer(cfg.Trading)

	warn := func(w domain.Warning) {
		logger.Warn("pipeline warning",
			slog.String("kind", string(w.Kind)),
			slog.String("match_id", w.MatchID),
			slog.String("detail", w.Detail),
		)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := deps.Notifier.Warning(ctx, w); err != nil {
				logger.Debug("warning notification failed", slog.Any("error", err))
			}
		}()
	}

	emitter := engine.NewEmitter(states, registry, markets, edges, sizer, gate, warn, logger)
	emitter.QuoteCache = deps.QuoteCache

	// Retirement side effects run off the event path. The summary row lands
	// in Postgres; the full decision history is bundled into blob storage
	// when an archiver is wired.
	emitter.OnRetired = func(summary domain.MatchSummary) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if deps.ArchiveStore != nil {
				if err := deps.ArchiveStore.Upsert(ctx, summary); err != nil {
					logger.Error("match archive upsert failed",
						slog.String("match_id", summary.MatchID),
						slog.Any("error", err))
				}
			}
			if deps.Archiver != nil {
				key, err := deps.Archiver.ArchiveMatch(ctx, summary)
				if err != nil {
					logger.Error("match blob archive failed",
						slog.String("match_id", summary.MatchID),
						slog.Any("error", err))
				} else {
					logger.Info("match archived",
						slog.String("match_id", summary.MatchID),
						slog.String("key", key))
				}
			}
			if err := deps.Notifier.MatchRetired(ctx, summary); err != nil {
				logger.Debug("retirement notification failed", slog.Any("error", err))
			}
		}()
	}

	return &pipeline{
		states:   states,
		registry: registry,
		markets:  markets,
		gate:     gate,
		emitter:  emitter,
	}
}

// runTrade runs the full decision pipeline: feeds in, decisions persisted,
// published to the execution stream, and alerted.
func (a *App) runTrade(ctx context.Context, deps *Dependencies) error {
	p := buildPipeline(a.cfg, deps, a.logger)
	dispatcher := dispatch.NewDispatcher(
		p.emitter.Decisions(),
		deps.DecisionStore,
		deps.SignalBus,
		a.cfg.Feed.DecisionStream,
		deps.Notifier,
		a.logger,
	)
	return a.runServices(ctx, deps, p, dispatcher, a.cfg.Server.Enabled)
}

// runMonitor runs the pipeline in shadow: decisions are persisted and
// alerted but never published to the execution stream.
func (a *App) runMonitor(ctx context.Context, deps *Dependencies) error {
	p := buildPipeline(a.cfg, deps, a.logger)
	dispatcher := dispatch.NewDispatcher(
		p.emitter.Decisions(),
		deps.DecisionStore,
		nil,
		"",
		deps.Notifier,
		a.logger,
	)
	return a.runServices(ctx, deps, p, dispatcher, a.cfg.Server.Enabled)
}

// runServer serves the HTTP API over the persisted stores without running
// feeds or emitting decisions.
func (a *App) runServer(ctx context.Context, deps *Dependencies) error {
	p := buildPipeline(a.cfg, deps, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTP(ctx, g, deps, p)
	return g.Wait()
}

// runFull runs the trade pipeline with the HTTP API always on.
func (a *App) runFull(ctx context.Context, deps *Dependencies) error {
	p := buildPipeline(a.cfg, deps, a.logger)
	dispatcher := dispatch.NewDispatcher(
		p.emitter.Decisions(),
		deps.DecisionStore,
		deps.SignalBus,
		a.cfg.Feed.DecisionStream,
		deps.Notifier,
		a.logger,
	)
	return a.runServices(ctx, deps, p, dispatcher, true)
}

// runServices starts the shared service set for trading modes and blocks
// until the first failure or context cancellation.
func (a *App) runServices(ctx context.Context, deps *Dependencies, p *pipeline, dispatcher *dispatch.Dispatcher, withServer bool) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.registry.Run(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Registry.SweepInterval.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				p.markets.SweepStale(now)
			}
		}
	})
	g.Go(func() error {
		return dispatcher.Run(ctx)
	})

	gameFeeder := feed.NewGameFeeder(deps.SignalBus, a.cfg.Feed.GameEventChannel, p.emitter, a.logger)
	g.Go(func() error {
		return gameFeeder.Run(ctx)
	})

	settlementFeeder := feed.NewSettlementFeeder(deps.SignalBus, a.cfg.Feed.SettlementChannel, p.emitter, a.logger)
	g.Go(func() error {
		return settlementFeeder.Run(ctx)
	})

	if a.cfg.Feed.MarketWSURL != "" {
		wsFeed := feed.NewMarketWSFeed(a.cfg.Feed.MarketWSURL, p.emitter, a.logger)
		g.Go(func() error {
			defer wsFeed.Close()
			return wsFeed.Run(ctx)
		})
	}

	if withServer {
		a.startHTTP(ctx, g, deps, p)
	}

	return g.Wait()
}

// startHTTP registers the API handlers and adds the HTTP server with its
// shutdown watcher to the group.
func (a *App) startHTTP(ctx context.Context, g *errgroup.Group, deps *Dependencies, p *pipeline) {
	pingers := map[string]handler.Pinger{
		"redis": deps.Redis,
	}
	if deps.Postgres != nil {
		pingers["postgres"] = deps.Postgres
	}

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		},
		server.Handlers{
			Health:    handler.NewHealthHandler(pingers),
			Decisions: handler.NewDecisionHandler(deps.DecisionStore),
			Matches:   handler.NewMatchHandler(p.states, p.markets, deps.ArchiveStore),
			Risk:      handler.NewRiskHandler(p.gate),
		},
		a.logger,
	)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
