package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/domain"
	"github.com/colehagen/esportsbot/internal/market"
	"github.com/colehagen/esportsbot/internal/model"
	"github.com/colehagen/esportsbot/internal/risk"
	"github.com/colehagen/esportsbot/internal/state"
)

type harness struct {
	emitter  *Emitter
	warnings *[]domain.Warning
}

func newHarness(t *testing.T, mutate func(*config.Config)) harness {
	t.Helper()
	cfg := config.Defaults()
	cfg.Trading.Bankroll = 10000
	cfg.Trading.MaxStake = 0
	if mutate != nil {
		mutate(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	states := state.New(logger)
	registry := model.NewRegistry(cfg.Model, cfg.Registry, logger)
	markets := market.New(cfg.Market.StalenessBound.Duration)

	var warnings []domain.Warning
	e := NewEmitter(
		states,
		registry,
		markets,
		NewEdgeCalculator(cfg.Trading, cfg.Market),
		NewSizer(cfg.Trading),
		risk.NewGate(cfg.Trading, logger),
		func(w domain.Warning) { warnings = append(warnings, w) },
		logger,
	)
	return harness{emitter: e, warnings: &warnings}
}

func liveMatch(t *testing.T, h harness, matchID string, at time.Time) {
	t.Helper()
	h.emitter.OnGameEvent(context.Background(), domain.GameEvent{
		MatchID:   matchID,
		Game:      domain.GameLoL,
		Type:      domain.EventMatchStart,
		Timestamp: at,
		Sync: &domain.StateSync{
			Team1: domain.TeamState{Name: "T1", Gold: 38000, Kills: 10, Towers: 4},
			Team2: domain.TeamState{Name: "GEN", Gold: 30000, Kills: 4, Towers: 1},
		},
		ElapsedSeconds: 1200,
	})
}

func drainOne(t *testing.T, h harness) domain.Decision {
	t.Helper()
	select {
	case d := <-h.emitter.Decisions():
		return d
	default:
		t.Fatal("expected a decision on the channel")
		return domain.Decision{}
	}
}

func TestMarketUpdateEmitsApprovedDecision(t *testing.T) {
	h := newHarness(t, nil)
	now := time.Now()
	liveMatch(t, h, "m1", now)

	h.emitter.OnMarketUpdate(context.Background(), domain.MarketSnapshot{
		MatchID:     "m1",
		Outcome:     domain.OutcomeTeam1,
		ImpliedProb: 0.50,
		Liquidity:   1000,
		Timestamp:   time.Now(),
	})

	d := drainOne(t, h)
	if d.Status != domain.DecisionApproved {
		t.Fatalf("status = %s (%s), want approved", d.Status, d.RejectReason)
	}
	if d.Side != domain.OrderSideBuy || d.Outcome != domain.OutcomeTeam1 {
		t.Errorf("decision = %s %s, want buy team1", d.Side, d.Outcome)
	}
	// 5% cap of a 10k bankroll bounds the stake at 500.
	if d.Stake <= 0 || d.Stake > 500 {
		t.Errorf("stake = %.2f, want in (0, 500]", d.Stake)
	}
}

func TestStaleQuoteProducesNoDecision(t *testing.T) {
	h := newHarness(t, nil)
	now := time.Now()
	liveMatch(t, h, "m1", now)

	// 60s old against the 30s staleness bound: stored but never evaluated.
	h.emitter.OnMarketUpdate(context.Background(), domain.MarketSnapshot{
		MatchID:     "m1",
		Outcome:     domain.OutcomeTeam1,
		ImpliedProb: 0.50,
		Liquidity:   1000,
		Timestamp:   time.Now().Add(-60 * time.Second),
	})

	select {
	case d := <-h.emitter.Decisions():
		t.Fatalf("unexpected decision %s for stale quote", d.ID)
	default:
	}
}

func TestSecondDecisionHitsCooldown(t *testing.T) {
	// Cap above two full stakes so exposure never trips before the cooldown.
	h := newHarness(t, func(cfg *config.Config) { cfg.Trading.PerMatchCapPct = 0.20 })
	now := time.Now()
	liveMatch(t, h, "m1", now)

	quote := domain.MarketSnapshot{
		MatchID:     "m1",
		Outcome:     domain.OutcomeTeam1,
		ImpliedProb: 0.50,
		Liquidity:   1000,
		Timestamp:   time.Now(),
	}
	h.emitter.OnMarketUpdate(context.Background(), quote)
	first := drainOne(t, h)
	if first.Status != domain.DecisionApproved {
		t.Fatalf("first decision %s, want approved", first.Status)
	}

	quote.Timestamp = time.Now()
	h.emitter.OnMarketUpdate(context.Background(), quote)
	second := drainOne(t, h)
	if second.Status != domain.DecisionRejected || second.RejectReason != domain.RejectCooldown {
		t.Fatalf("second decision %s/%s, want rejected/cooldown", second.Status, second.RejectReason)
	}
}

func TestEventAfterRetirementWarns(t *testing.T) {
	h := newHarness(t, nil)
	now := time.Now()
	liveMatch(t, h, "m1", now)

	var summaries []domain.MatchSummary
	h.emitter.OnRetired = func(s domain.MatchSummary) { summaries = append(summaries, s) }

	h.emitter.OnGameEvent(context.Background(), domain.GameEvent{
		MatchID:   "m1",
		Type:      domain.EventMatchEnd,
		Winner:    1,
		Timestamp: now.Add(time.Second),
	})
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1 after match end", len(summaries))
	}
	if summaries[0].Winner != 1 {
		t.Errorf("summary winner = %d, want 1", summaries[0].Winner)
	}
	h.emitter.mu.Lock()
	_, held := h.emitter.locks["m1"]
	h.emitter.mu.Unlock()
	if held {
		t.Error("per-match lock entry should be dropped at finalization")
	}

	h.emitter.OnGameEvent(context.Background(), domain.GameEvent{
		MatchID:   "m1",
		Type:      domain.EventKill,
		Team:      1,
		Timestamp: now.Add(2 * time.Second),
	})
	ws := *h.warnings
	if len(ws) == 0 || ws[len(ws)-1].Kind != domain.WarnMatchRetired {
		t.Fatalf("warnings = %v, want trailing match_retired", ws)
	}
}

func TestUnknownMatchEventWarns(t *testing.T) {
	h := newHarness(t, nil)

	h.emitter.OnGameEvent(context.Background(), domain.GameEvent{
		MatchID:   "ghost",
		Type:      domain.EventKill,
		Team:      1,
		Timestamp: time.Now(),
	})
	ws := *h.warnings
	if len(ws) != 1 || ws[0].Kind != domain.WarnUnknownMatch {
		t.Fatalf("warnings = %v, want one unknown_match", ws)
	}
}

func TestSettlementFreesExposure(t *testing.T) {
	h := newHarness(t, nil)
	now := time.Now()
	liveMatch(t, h, "m1", now)

	h.emitter.OnMarketUpdate(context.Background(), domain.MarketSnapshot{
		MatchID:     "m1",
		Outcome:     domain.OutcomeTeam1,
		ImpliedProb: 0.50,
		Liquidity:   1000,
		Timestamp:   time.Now(),
	})
	d := drainOne(t, h)
	if d.Status != domain.DecisionApproved {
		t.Fatalf("decision %s, want approved", d.Status)
	}

	h.emitter.OnSettlement("m1", d.Stake, 25.0, time.Now())
	// All exposure released: an immediate retrade is blocked only by cooldown,
	// not exposure.
	h.emitter.OnMarketUpdate(context.Background(), domain.MarketSnapshot{
		MatchID:     "m1",
		Outcome:     domain.OutcomeTeam1,
		ImpliedProb: 0.50,
		Liquidity:   1000,
		Timestamp:   time.Now(),
	})
	second := drainOne(t, h)
	if second.RejectReason != domain.RejectCooldown {
		t.Fatalf("reject reason = %s, want cooldown (exposure must be freed)", second.RejectReason)
	}
}
