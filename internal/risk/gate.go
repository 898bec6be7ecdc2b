// Package risk enforces stake limits, exposure caps, cooldowns, and the
// daily-loss circuit breaker. Approval and exposure reservation happen
// atomically so concurrent approvals can never overshoot a cap.
package risk

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/domain"
)

// Status is a point-in-time snapshot of the gate for the status API.
type Status struct {
	Halted         bool               `json:"halted"`
	HaltReason     string             `json:"halt_reason,omitempty"`
	Bankroll       float64            `json:"bankroll"`
	TotalExposure  float64            `json:"total_exposure"`
	PerMatch       map[string]float64 `json:"per_match_exposure"`
	DailyLoss      float64            `json:"daily_loss"`
	DailyLossLimit float64            `json:"daily_loss_limit"`
}

// Gate is the final authority on whether a recommendation becomes a trade.
// All mutable state sits behind one mutex; check and reserve are a single
// critical section.
type Gate struct {
	mu         sync.Mutex
	cfg        config.TradingConfig
	perMatch   map[string]float64
	total      float64
	lastTrade  map[string]time.Time
	dailyLoss  float64
	lossDay    time.Time
	halted     bool
	haltReason string
	logger     *slog.Logger
}

// NewGate returns a gate with zero exposure and trading enabled.
func NewGate(cfg config.TradingConfig, logger *slog.Logger) *Gate {
	return &Gate{
		cfg:       cfg,
		perMatch:  make(map[string]float64),
		lastTrade: make(map[string]time.Time),
		logger:    logger.With(slog.String("component", "risk_gate")),
	}
}

// Evaluate runs the ordered limit checks against a recommendation. On
// approval the stake is reserved against the match and aggregate exposure and
// the cooldown clock restarts; the returned rejection is nil. On rejection no
// state changes.
//
// Check order: halt, per-match cap, aggregate cap, minimum stake, maximum
// stake, cooldown.
func (g *Gate) Evaluate(rec domain.PositionRecommendation, now time.Time) *domain.Rejection {
	g.mu.Lock()
	defer g.mu.Unlock()

	reject := func(reason domain.RejectReason, detail string) *domain.Rejection {
		g.logger.Info("recommendation rejected",
			slog.String("match_id", rec.MatchID),
			slog.String("reason", string(reason)),
			slog.String("detail", detail))
		return &domain.Rejection{
			Recommendation: rec,
			Reason:         reason,
			Detail:         detail,
			RejectedAt:     now,
		}
	}

	if g.halted {
		return reject(domain.RejectHalted, g.haltReason)
	}

	matchCap := g.cfg.Bankroll * g.cfg.PerMatchCapPct
	if g.perMatch[rec.MatchID]+rec.Stake > matchCap {
		return reject(domain.RejectExposureExceeded,
			fmt.Sprintf("match exposure %.2f + %.2f exceeds cap %.2f",
				g.perMatch[rec.MatchID], rec.Stake, matchCap))
	}

	totalCap := g.cfg.Bankroll * g.cfg.AggregateCapPct
	if g.total+rec.Stake > totalCap {
		return reject(domain.RejectExposureExceeded,
			fmt.Sprintf("total exposure %.2f + %.2f exceeds cap %.2f", g.total, rec.Stake, totalCap))
	}

	if rec.Stake < g.cfg.MinStake {
		return reject(domain.RejectBelowMinimum,
			fmt.Sprintf("stake %.2f below minimum %.2f", rec.Stake, g.cfg.MinStake))
	}
	if g.cfg.MaxStake > 0 && rec.Stake > g.cfg.MaxStake {
		return reject(domain.RejectAboveMaximum,
			fmt.Sprintf("stake %.2f above maximum %.2f", rec.Stake, g.cfg.MaxStake))
	}

	if last, ok := g.lastTrade[rec.MatchID]; ok {
		if elapsed := now.Sub(last); elapsed < g.cfg.Cooldown.Duration {
			return reject(domain.RejectCooldown,
				fmt.Sprintf("last trade %s ago, cooldown %s", elapsed.Round(time.Second), g.cfg.Cooldown.Duration))
		}
	}

	g.perMatch[rec.MatchID] += rec.Stake
	g.total += rec.Stake
	g.lastTrade[rec.MatchID] = now
	g.logger.Info("recommendation approved",
		slog.String("match_id", rec.MatchID),
		slog.Float64("stake", rec.Stake),
		slog.Float64("match_exposure", g.perMatch[rec.MatchID]),
		slog.Float64("total_exposure", g.total))
	return nil
}

// Approve is the error-typed form of Evaluate. On approval the stake is
// reserved and the trade is returned; on rejection the error wraps the
// matching domain sentinel (ErrExposureExceeded, ErrBelowMinimumStake,
// ErrCooldown, ErrTradingHalted) for errors.Is.
func (g *Gate) Approve(rec domain.PositionRecommendation, now time.Time) (domain.ApprovedTrade, error) {
	if rej := g.Evaluate(rec, now); rej != nil {
		return domain.ApprovedTrade{}, fmt.Errorf("%s: %w", rej.Detail, rej.Reason.Err())
	}
	return domain.ApprovedTrade{Recommendation: rec, ApprovedAt: now}, nil
}

// Release frees reserved exposure when a position settles or an order fails.
func (g *Gate) Release(matchID string, stake float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.perMatch[matchID] -= stake
	if g.perMatch[matchID] <= 0 {
		delete(g.perMatch, matchID)
	}
	g.total -= stake
	if g.total < 0 {
		g.total = 0
	}
}

// ReleaseMatch frees all exposure for a match, used at retirement.
func (g *Gate) ReleaseMatch(matchID string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	freed := g.perMatch[matchID]
	delete(g.perMatch, matchID)
	delete(g.lastTrade, matchID)
	g.total -= freed
	if g.total < 0 {
		g.total = 0
	}
	return freed
}

// RecordPnL applies a realized profit or loss. Losses accumulate against the
// daily limit; crossing it halts trading until Resume or the next day.
func (g *Gate) RecordPnL(delta float64, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	day := now.Truncate(24 * time.Hour)
	if !day.Equal(g.lossDay) {
		g.lossDay = day
		g.dailyLoss = 0
		if g.halted && g.haltReason == "daily loss limit reached" {
			g.halted = false
			g.haltReason = ""
			g.logger.Info("daily loss halt cleared")
		}
	}

	if delta < 0 {
		g.dailyLoss += -delta
		if g.cfg.MaxDailyLoss > 0 && g.dailyLoss >= g.cfg.MaxDailyLoss && !g.halted {
			g.halted = true
			g.haltReason = "daily loss limit reached"
			g.logger.Warn("trading halted",
				slog.Float64("daily_loss", g.dailyLoss),
				slog.Float64("limit", g.cfg.MaxDailyLoss))
		}
	}
}

// Halt stops all approvals with the given reason.
func (g *Gate) Halt(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.halted = true
	g.haltReason = reason
	g.logger.Warn("trading halted", slog.String("reason", reason))
}

// Resume re-enables approvals after a manual or automatic halt.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.halted = false
	g.haltReason = ""
	g.logger.Info("trading resumed")
}

// Snapshot returns the current gate state for observability.
func (g *Gate) Snapshot() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	per := make(map[string]float64, len(g.perMatch))
	for k, v := range g.perMatch {
		per[k] = v
	}
	return Status{
		Halted:         g.halted,
		HaltReason:     g.haltReason,
		Bankroll:       g.cfg.Bankroll,
		TotalExposure:  g.total,
		PerMatch:       per,
		DailyLoss:      g.dailyLoss,
		DailyLossLimit: g.cfg.MaxDailyLoss,
	}
}
