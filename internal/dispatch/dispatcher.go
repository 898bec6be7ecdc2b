// Package dispatch drains the decision stream: every decision is persisted,
// approved trades are published for the order-execution service, and operator
// alerts go out best effort.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/colehagen/esportsbot/internal/domain"
)

// Alerter is the notification surface the dispatcher uses. Delivery failures
// are logged, never propagated.
type Alerter interface {
	Decision(ctx context.Context, d domain.Decision) error
}

// Dispatcher consumes emitted decisions and fans them out to the audit store,
// the decision stream, and operator alerts.
type Dispatcher struct {
	decisions <-chan domain.Decision
	store     domain.DecisionStore
	bus       domain.SignalBus
	stream    string
	alerter   Alerter
	dedup     *Dedup
	logger    *slog.Logger

	cleanupInterval time.Duration
}

// NewDispatcher creates a Dispatcher reading from decisions. Store, bus, and
// alerter may each be nil; missing sinks are skipped.
func NewDispatcher(
	decisions <-chan domain.Decision,
	store domain.DecisionStore,
	bus domain.SignalBus,
	stream string,
	alerter Alerter,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		decisions:       decisions,
		store:           store,
		bus:             bus,
		stream:          stream,
		alerter:         alerter,
		dedup:           NewDedup(2 * time.Minute),
		logger:          logger.With(slog.String("component", "dispatcher")),
		cleanupInterval: 30 * time.Second,
	}
}

// Run processes decisions until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.dedup.Cleanup()
		case dec, ok := <-d.decisions:
			if !ok {
				return nil
			}
			d.handle(ctx, dec)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, dec domain.Decision) {
	if d.dedup.IsDuplicate(dec.ID) {
		d.logger.Debug("duplicate decision dropped", slog.String("decision_id", dec.ID))
		return
	}

	if d.store != nil {
		if err := d.store.Insert(ctx, dec); err != nil {
			d.logger.Error("persist decision failed",
				slog.String("decision_id", dec.ID),
				slog.Any("error", err))
		}
	}

	// Only approved trades reach the execution stream; rejections are audit
	// records only.
	if d.bus != nil && dec.Status == domain.DecisionApproved {
		payload, err := json.Marshal(dec)
		if err != nil {
			d.logger.Error("marshal decision failed", slog.String("decision_id", dec.ID), slog.Any("error", err))
		} else if err := d.bus.StreamAppend(ctx, d.stream, payload); err != nil {
			d.logger.Error("stream append failed",
				slog.String("decision_id", dec.ID),
				slog.Any("error", err))
		}
	}

	if d.alerter != nil {
		if err := d.alerter.Decision(ctx, dec); err != nil {
			d.logger.Warn("alert delivery failed", slog.String("decision_id", dec.ID), slog.Any("error", err))
		}
	}

	d.logger.Info("decision dispatched",
		slog.String("decision_id", dec.ID),
		slog.String("match_id", dec.MatchID),
		slog.String("status", string(dec.Status)))
}
