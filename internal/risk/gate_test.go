package risk

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/domain"
)

func testGate(mutate func(*config.TradingConfig)) *Gate {
	cfg := config.Defaults().Trading
	cfg.Bankroll = 10000
	cfg.MaxStake = 0
	if mutate != nil {
		mutate(&cfg)
	}
	return NewGate(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func rec(matchID string, stake float64) domain.PositionRecommendation {
	return domain.PositionRecommendation{
		ID:      "r-" + matchID,
		MatchID: matchID,
		Outcome: domain.OutcomeTeam1,
		Side:    domain.OrderSideBuy,
		Stake:   stake,
	}
}

func TestEvaluateApprovesAndReserves(t *testing.T) {
	g := testGate(nil)
	now := time.Now()

	if rej := g.Evaluate(rec("m1", 100), now); rej != nil {
		t.Fatalf("unexpected rejection: %s %s", rej.Reason, rej.Detail)
	}
	st := g.Snapshot()
	if st.TotalExposure != 100 || st.PerMatch["m1"] != 100 {
		t.Errorf("exposure = %.2f/%.2f, want 100/100", st.TotalExposure, st.PerMatch["m1"])
	}
}

func TestEvaluateCooldown(t *testing.T) {
	g := testGate(nil)
	now := time.Now()

	if rej := g.Evaluate(rec("m1", 100), now); rej != nil {
		t.Fatalf("first trade rejected: %s", rej.Reason)
	}
	rej := g.Evaluate(rec("m1", 100), now.Add(5*time.Second))
	if rej == nil || rej.Reason != domain.RejectCooldown {
		t.Fatalf("rejection = %+v, want cooldown", rej)
	}
	// Another match is unaffected by m1's cooldown.
	if rej := g.Evaluate(rec("m2", 100), now.Add(5*time.Second)); rej != nil {
		t.Errorf("m2 rejected during m1 cooldown: %s", rej.Reason)
	}
	// m1 trades again once the cooldown passes.
	if rej := g.Evaluate(rec("m1", 100), now.Add(31*time.Second)); rej != nil {
		t.Errorf("rejected after cooldown elapsed: %s", rej.Reason)
	}
}

func TestEvaluateStakeBounds(t *testing.T) {
	g := testGate(func(c *config.TradingConfig) { c.MaxStake = 200 })
	now := time.Now()

	rej := g.Evaluate(rec("m1", 2), now)
	if rej == nil || rej.Reason != domain.RejectBelowMinimum {
		t.Fatalf("rejection = %+v, want below_minimum_stake", rej)
	}
	rej = g.Evaluate(rec("m1", 300), now)
	if rej == nil || rej.Reason != domain.RejectAboveMaximum {
		t.Fatalf("rejection = %+v, want above_maximum_stake", rej)
	}
	st := g.Snapshot()
	if st.TotalExposure != 0 {
		t.Errorf("rejections must not reserve exposure, got %.2f", st.TotalExposure)
	}
}

func TestEvaluatePerMatchCap(t *testing.T) {
	// 10k bankroll, 5% per-match cap = 500.
	g := testGate(func(c *config.TradingConfig) { c.Cooldown.Duration = 0 })
	now := time.Now()

	if rej := g.Evaluate(rec("m1", 400), now); rej != nil {
		t.Fatalf("first trade rejected: %s", rej.Reason)
	}
	rej := g.Evaluate(rec("m1", 200), now.Add(time.Second))
	if rej == nil || rej.Reason != domain.RejectExposureExceeded {
		t.Fatalf("rejection = %+v, want exposure_exceeded", rej)
	}
	if rej := g.Evaluate(rec("m1", 100), now.Add(2*time.Second)); rej != nil {
		t.Errorf("trade within remaining cap rejected: %s", rej.Reason)
	}
}

func TestEvaluateAggregateCap(t *testing.T) {
	g := testGate(func(c *config.TradingConfig) {
		c.PerMatchCapPct = 0.50
		c.AggregateCapPct = 0.50
	})
	now := time.Now()

	// Aggregate cap is 5000 across matches.
	for i, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		if rej := g.Evaluate(rec(id, 1000), now.Add(time.Duration(i)*time.Second)); rej != nil {
			t.Fatalf("%s rejected: %s", id, rej.Reason)
		}
	}
	rej := g.Evaluate(rec("m6", 1000), now.Add(10*time.Second))
	if rej == nil || rej.Reason != domain.RejectExposureExceeded {
		t.Fatalf("rejection = %+v, want exposure_exceeded at aggregate cap", rej)
	}
}

func TestConcurrentApprovalsNeverOvershoot(t *testing.T) {
	g := testGate(func(c *config.TradingConfig) {
		c.Cooldown.Duration = 0
		c.PerMatchCapPct = 0.05 // cap 500
	})
	now := time.Now()

	var wg sync.WaitGroup
	approved := make(chan struct{}, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Evaluate(rec("m1", 100), now) == nil {
				approved <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(approved)

	n := 0
	for range approved {
		n++
	}
	if n != 5 {
		t.Errorf("approved %d trades of 100 against a 500 cap, want exactly 5", n)
	}
	if st := g.Snapshot(); st.TotalExposure != 500 {
		t.Errorf("total exposure = %.2f, want 500", st.TotalExposure)
	}
}

func TestReleaseAndRetirement(t *testing.T) {
	g := testGate(func(c *config.TradingConfig) { c.Cooldown.Duration = 0 })
	now := time.Now()

	if rej := g.Evaluate(rec("m1", 300), now); rej != nil {
		t.Fatal(rej.Reason)
	}
	g.Release("m1", 100)
	if st := g.Snapshot(); st.PerMatch["m1"] != 200 || st.TotalExposure != 200 {
		t.Errorf("exposure after release = %.2f/%.2f, want 200/200", st.PerMatch["m1"], st.TotalExposure)
	}

	if freed := g.ReleaseMatch("m1"); freed != 200 {
		t.Errorf("ReleaseMatch freed %.2f, want 200", freed)
	}
	if st := g.Snapshot(); st.TotalExposure != 0 {
		t.Errorf("total exposure = %.2f after retirement, want 0", st.TotalExposure)
	}
}

func TestDailyLossCircuitBreaker(t *testing.T) {
	g := testGate(func(c *config.TradingConfig) { c.MaxDailyLoss = 100 })
	now := time.Now()

	g.RecordPnL(-60, now)
	if rej := g.Evaluate(rec("m1", 50), now); rej != nil {
		t.Fatalf("rejected below loss limit: %s", rej.Reason)
	}
	g.RecordPnL(-50, now)
	rej := g.Evaluate(rec("m2", 50), now)
	if rej == nil || rej.Reason != domain.RejectHalted {
		t.Fatalf("rejection = %+v, want halted after daily loss limit", rej)
	}

	// Next day the counter resets and the halt clears.
	g.RecordPnL(0, now.Add(25*time.Hour))
	if rej := g.Evaluate(rec("m3", 50), now.Add(25*time.Hour)); rej != nil {
		t.Errorf("rejected after daily reset: %s", rej.Reason)
	}
}

func TestApproveReturnsSentinelErrors(t *testing.T) {
	g := testGate(nil)
	now := time.Now()

	trade, err := g.Approve(rec("m1", 100), now)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if trade.Recommendation.MatchID != "m1" || !trade.ApprovedAt.Equal(now) {
		t.Errorf("trade = %+v, want reservation for m1 at %v", trade, now)
	}

	if _, err := g.Approve(rec("m1", 100), now.Add(time.Second)); !errors.Is(err, domain.ErrCooldown) {
		t.Errorf("err = %v, want ErrCooldown", err)
	}
	if _, err := g.Approve(rec("m2", 2), now); !errors.Is(err, domain.ErrBelowMinimumStake) {
		t.Errorf("err = %v, want ErrBelowMinimumStake", err)
	}
	if _, err := g.Approve(rec("m3", 600), now); !errors.Is(err, domain.ErrExposureExceeded) {
		t.Errorf("err = %v, want ErrExposureExceeded", err)
	}

	g.Halt("maintenance")
	if _, err := g.Approve(rec("m4", 100), now); !errors.Is(err, domain.ErrTradingHalted) {
		t.Errorf("err = %v, want ErrTradingHalted", err)
	}
}

func TestManualHaltResume(t *testing.T) {
	g := testGate(nil)
	now := time.Now()

	g.Halt("maintenance")
	if rej := g.Evaluate(rec("m1", 50), now); rej == nil || rej.Reason != domain.RejectHalted {
		t.Fatalf("rejection = %+v, want halted", rej)
	}
	g.Resume()
	if rej := g.Evaluate(rec("m1", 50), now); rej != nil {
		t.Errorf("rejected after resume: %s", rej.Reason)
	}
}
