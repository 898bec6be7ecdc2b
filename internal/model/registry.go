package model

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/domain"
)

// EntryStatus is the lifecycle state of a per-match model entry.
type EntryStatus string

const (
	StatusActive  EntryStatus = "active"
	StatusRetired EntryStatus = "retired"
)

type entry struct {
	model       Model
	game        domain.GameType
	status      EntryStatus
	startedAt   time.Time
	lastEventAt time.Time
	retiredAt   time.Time
}

// Registry owns one model instance per tracked match and its lifecycle.
// Retired entries keep a tombstone for a grace period so late events get a
// retirement error rather than an unknown-match error.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	params  config.ModelConfig
	cfg     config.RegistryConfig
	logger  *slog.Logger

	// OnRetire is invoked outside the registry lock when a match is retired
	// by the inactivity sweep. Optional.
	OnRetire func(matchID string, game domain.GameType)
}

// NewRegistry returns an empty model registry.
func NewRegistry(params config.ModelConfig, cfg config.RegistryConfig, logger *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		params:  params,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "model_registry")),
	}
}

// Activate creates an active entry for the match, instantiating the model for
// its game. Re-activating a live match is a no-op; re-activating a retired
// match clears the tombstone and starts fresh.
func (r *Registry) Activate(matchID string, game domain.GameType, at time.Time) error {
	m, err := ForGame(game, r.params)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[matchID]; ok && e.status == StatusActive {
		return nil
	}
	r.entries[matchID] = &entry{
		model:       m,
		game:        game,
		status:      StatusActive,
		startedAt:   at,
		lastEventAt: at,
	}
	r.logger.Info("model activated",
		slog.String("match_id", matchID),
		slog.String("game", string(game)),
		slog.String("model", m.Version()))
	return nil
}

// ModelFor returns the active model for a match. Returns ErrMatchRetired for
// tombstoned matches and ErrUnknownMatch otherwise.
func (r *Registry) ModelFor(matchID string) (Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[matchID]
	if !ok {
		return nil, fmt.Errorf("model for %s: %w", matchID, domain.ErrUnknownMatch)
	}
	if e.status == StatusRetired {
		return nil, fmt.Errorf("model for %s: %w", matchID, domain.ErrMatchRetired)
	}
	return e.model, nil
}

// Touch records event activity for the inactivity sweep.
func (r *Registry) Touch(matchID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[matchID]; ok && at.After(e.lastEventAt) {
		e.lastEventAt = at
	}
}

// Retire tombstones a match entry. Returns false if the match is unknown or
// already retired.
func (r *Registry) Retire(matchID string, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retireLocked(matchID, at)
}

func (r *Registry) retireLocked(matchID string, at time.Time) bool {
	e, ok := r.entries[matchID]
	if !ok || e.status == StatusRetired {
		return false
	}
	e.status = StatusRetired
	e.retiredAt = at
	r.logger.Info("model retired", slog.String("match_id", matchID))
	return true
}

// StartedAt returns when the match entry was activated.
func (r *Registry) StartedAt(matchID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[matchID]
	if !ok {
		return time.Time{}, false
	}
	return e.startedAt, true
}

// ActiveMatches returns the IDs of all live entries.
func (r *Registry) ActiveMatches() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for id, e := range r.entries {
		if e.status == StatusActive {
			out = append(out, id)
		}
	}
	return out
}

// Sweep retires entries with no activity past the inactivity timeout and
// drops tombstones older than the retire grace period. Returns the matches
// retired by this pass.
func (r *Registry) Sweep(now time.Time) []string {
	type retired struct {
		id   string
		game domain.GameType
	}
	var swept []retired

	r.mu.Lock()
	for id, e := range r.entries {
		switch e.status {
		case StatusActive:
			if now.Sub(e.lastEventAt) > r.cfg.InactivityTimeout.Duration {
				r.retireLocked(id, now)
				swept = append(swept, retired{id: id, game: e.game})
			}
		case StatusRetired:
			if now.Sub(e.retiredAt) > r.cfg.RetireGrace.Duration {
				delete(r.entries, id)
			}
		}
	}
	cb := r.OnRetire
	r.mu.Unlock()

	ids := make([]string, 0, len(swept))
	for _, s := range swept {
		ids = append(ids, s.id)
		if cb != nil {
			cb(s.id, s.game)
		}
	}
	return ids
}

// Run sweeps periodically until the context is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.SweepInterval.Duration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if ids := r.Sweep(now); len(ids) > 0 {
				r.logger.Info("inactivity sweep retired matches", slog.Int("count", len(ids)))
			}
		}
	}
}
