package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/colehagen/esportsbot/internal/domain"
	"github.com/colehagen/esportsbot/internal/market"
	"github.com/colehagen/esportsbot/internal/metrics"
	"github.com/colehagen/esportsbot/internal/model"
	"github.com/colehagen/esportsbot/internal/risk"
	"github.com/colehagen/esportsbot/internal/state"
)

// WarningSink receives non-fatal pipeline conditions.
type WarningSink func(domain.Warning)

// Emitter is the pipeline orchestrator. Game events and market updates enter
// here; decisions leave on the Decisions channel. Cycles for the same match
// are serialized by a per-match lock, different matches run concurrently.
type Emitter struct {
	states   *state.Store
	registry *model.Registry
	markets  *market.Store
	edges    *EdgeCalculator
	sizer    *Sizer
	gate     *risk.Gate
	logger   *slog.Logger

	decisions chan domain.Decision
	warn      WarningSink

	// OnRetired receives the summary of each retired match. Optional.
	OnRetired func(summary domain.MatchSummary)

	// QuoteCache mirrors accepted snapshots for external readers. Optional.
	QuoteCache domain.QuoteCache

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	counts   map[string]int
	winners  map[string]int
	lastProb map[string]float64
}

// NewEmitter wires the pipeline stages together.
func NewEmitter(
	states *state.Store,
	registry *model.Registry,
	markets *market.Store,
	edges *EdgeCalculator,
	sizer *Sizer,
	gate *risk.Gate,
	warn WarningSink,
	logger *slog.Logger,
) *Emitter {
	if warn == nil {
		warn = func(domain.Warning) {}
	}
	e := &Emitter{
		states:    states,
		registry:  registry,
		markets:   markets,
		edges:     edges,
		sizer:     sizer,
		gate:      gate,
		logger:    logger.With(slog.String("component", "emitter")),
		decisions: make(chan domain.Decision, 256),
		warn:      warn,
		locks:     make(map[string]*sync.Mutex),
		counts:    make(map[string]int),
		winners:   make(map[string]int),
		lastProb:  make(map[string]float64),
	}
	registry.OnRetire = func(matchID string, _ domain.GameType) {
		e.finalizeMatch(matchID, time.Now())
	}
	return e
}

// Decisions is the stream of emitted decisions, approved and rejected.
func (e *Emitter) Decisions() <-chan domain.Decision {
	return e.decisions
}

// OnGameEvent folds a game event into match state and runs a decision cycle.
// Stale, unknown, and retired conditions become warnings, not errors; the
// caller's feed loop should not stop for them.
func (e *Emitter) OnGameEvent(ctx context.Context, ev domain.GameEvent) {
	unlock := e.lockMatch(ev.MatchID)
	defer unlock()

	start := time.Now()
	defer func() { metrics.CycleDuration.Observe(time.Since(start).Seconds()) }()

	if _, err := e.registry.ModelFor(ev.MatchID); errors.Is(err, domain.ErrMatchRetired) {
		metrics.EventsDropped.WithLabelValues("retired").Inc()
		e.warn(domain.Warning{
			Kind:    domain.WarnMatchRetired,
			MatchID: ev.MatchID,
			Detail:  string(ev.Type) + " after retirement",
			At:      time.Now(),
		})
		return
	}

	st, err := e.states.Apply(ev)
	switch {
	case errors.Is(err, domain.ErrStaleEvent):
		metrics.EventsDropped.WithLabelValues("stale").Inc()
		e.warn(domain.Warning{Kind: domain.WarnStaleEvent, MatchID: ev.MatchID, Detail: err.Error(), At: time.Now()})
		return
	case errors.Is(err, domain.ErrUnknownMatch):
		metrics.EventsDropped.WithLabelValues("unknown").Inc()
		e.warn(domain.Warning{Kind: domain.WarnUnknownMatch, MatchID: ev.MatchID, Detail: err.Error(), At: time.Now()})
		return
	case errors.Is(err, domain.ErrMatchFinished):
		metrics.EventsDropped.WithLabelValues("finished").Inc()
		return
	case err != nil:
		e.logger.Error("apply event failed", slog.String("match_id", ev.MatchID), slog.Any("error", err))
		return
	}
	metrics.EventsProcessed.WithLabelValues(string(ev.Type)).Inc()

	switch ev.Type {
	case domain.EventMatchStart:
		if err := e.registry.Activate(ev.MatchID, ev.Game, ev.Timestamp); err != nil {
			e.logger.Error("activate model failed", slog.String("match_id", ev.MatchID), slog.Any("error", err))
			return
		}
		metrics.ActiveMatches.Set(float64(len(e.registry.ActiveMatches())))
		return

	case domain.EventMatchEnd:
		e.mu.Lock()
		e.winners[ev.MatchID] = ev.Winner
		e.mu.Unlock()
		e.registry.Retire(ev.MatchID, time.Now())
		e.finalizeMatchLocked(ev.MatchID, st, time.Now())
		return
	}

	e.registry.Touch(ev.MatchID, ev.Timestamp)
	e.runCycle(ctx, st)
}

// OnMarketUpdate stores a quote and runs a decision cycle against the latest
// state, if the match has an active model.
func (e *Emitter) OnMarketUpdate(ctx context.Context, snap domain.MarketSnapshot) {
	unlock := e.lockMatch(snap.MatchID)
	defer unlock()

	e.markets.Put(snap)
	metrics.QuotesReceived.Inc()

	if e.QuoteCache != nil {
		if err := e.QuoteCache.SetQuote(ctx, snap); err != nil {
			e.logger.Warn("quote cache write failed", slog.String("match_id", snap.MatchID), slog.Any("error", err))
		}
	}

	if _, err := e.registry.ModelFor(snap.MatchID); err != nil {
		return
	}
	st, err := e.states.Get(snap.MatchID)
	if err != nil {
		return
	}

	start := time.Now()
	e.runCycle(ctx, st)
	metrics.CycleDuration.Observe(time.Since(start).Seconds())
}

// OnSettlement releases reserved exposure for a settled position and applies
// the realized profit or loss to the daily circuit breaker.
func (e *Emitter) OnSettlement(matchID string, stake, pnl float64, now time.Time) {
	e.gate.Release(matchID, stake)
	e.gate.RecordPnL(pnl, now)
	metrics.TotalExposure.Set(e.gate.Snapshot().TotalExposure)
	e.logger.Info("position settled",
		slog.String("match_id", matchID),
		slog.Float64("stake", stake),
		slog.Float64("pnl", pnl))
}

// runCycle evaluates every fresh quote for the match and emits decisions.
// Caller holds the match lock.
func (e *Emitter) runCycle(ctx context.Context, st domain.MatchState) {
	m, err := e.registry.ModelFor(st.MatchID)
	if err != nil {
		return
	}
	est := m.Estimate(st)
	now := time.Now()

	e.mu.Lock()
	e.lastProb[st.MatchID] = est.Team1Prob
	e.mu.Unlock()

	for _, snap := range e.markets.Fresh(st.MatchID, now) {
		edge, side, ok := e.edges.Compute(est, snap)
		metrics.EdgeObserved.Observe(absFloat(edge.Value))
		if !ok {
			continue
		}

		rec, res := e.sizer.Size(edge, side, now)
		if res != SizeOK {
			if res == SizeDegenerateOdds {
				e.warn(domain.Warning{
					Kind:    domain.WarnDegenerateOdds,
					MatchID: st.MatchID,
					Detail:  "degenerate odds for " + string(snap.Outcome),
					At:      now,
				})
			}
			continue
		}

		rej := e.gate.Evaluate(rec, now)
		d := domain.Decision{
			ID:            rec.ID,
			MatchID:       rec.MatchID,
			Outcome:       rec.Outcome,
			Side:          rec.Side,
			Stake:         rec.Stake,
			StakeFraction: rec.StakeFraction,
			Edge:          rec.Edge,
			Confidence:    rec.Confidence,
			Rationale:     rec.Rationale,
			CreatedAt:     now,
		}
		if rej != nil {
			d.Status = domain.DecisionRejected
			d.RejectReason = rej.Reason
			metrics.Rejections.WithLabelValues(string(rej.Reason)).Inc()
		} else {
			d.Status = domain.DecisionApproved
			metrics.TotalExposure.Set(e.gate.Snapshot().TotalExposure)
		}
		metrics.DecisionsEmitted.WithLabelValues(string(d.Status)).Inc()

		e.mu.Lock()
		e.counts[st.MatchID]++
		e.mu.Unlock()

		select {
		case e.decisions <- d:
		case <-ctx.Done():
			return
		default:
			e.logger.Warn("decision channel full, dropping", slog.String("decision_id", d.ID))
		}
	}
}

// finalizeMatch retires a match from outside the event path, e.g. the
// inactivity sweep.
func (e *Emitter) finalizeMatch(matchID string, now time.Time) {
	unlock := e.lockMatch(matchID)
	defer unlock()
	st, err := e.states.Get(matchID)
	if err != nil {
		st = domain.MatchState{MatchID: matchID}
	}
	e.finalizeMatchLocked(matchID, st, now)
}

// finalizeMatchLocked tears down all per-match state. Caller holds the match
// lock.
func (e *Emitter) finalizeMatchLocked(matchID string, st domain.MatchState, now time.Time) {
	freed := e.gate.ReleaseMatch(matchID)
	if freed > 0 {
		e.logger.Info("released exposure at retirement",
			slog.String("match_id", matchID), slog.Float64("freed", freed))
	}

	e.mu.Lock()
	decisions := e.counts[matchID]
	winner := e.winners[matchID]
	finalProb := e.lastProb[matchID]
	delete(e.counts, matchID)
	delete(e.winners, matchID)
	delete(e.lastProb, matchID)
	// The caller still holds this lock; dropping the map entry only stops
	// the map growing. A late event re-creates it and hits the tombstone.
	delete(e.locks, matchID)
	e.mu.Unlock()

	startedAt, _ := e.registry.StartedAt(matchID)
	summary := domain.MatchSummary{
		MatchID:        matchID,
		Game:           st.Game,
		Phase:          st.Phase,
		Winner:         winner,
		FinalTeam1Prob: finalProb,
		Decisions:      decisions,
		StartedAt:      startedAt,
		RetiredAt:      now,
	}

	e.states.Remove(matchID)
	e.markets.Remove(matchID)
	metrics.ActiveMatches.Set(float64(len(e.registry.ActiveMatches())))
	metrics.TotalExposure.Set(e.gate.Snapshot().TotalExposure)

	if e.OnRetired != nil {
		e.OnRetired(summary)
	}
	e.logger.Info("match finalized",
		slog.String("match_id", matchID),
		slog.Int("decisions", decisions))
}

func (e *Emitter) lockMatch(matchID string) func() {
	e.mu.Lock()
	l, ok := e.locks[matchID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[matchID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
