package engine

import (
	"math"
	"testing"
	"time"

	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/domain"
)

func tradingCfg() config.TradingConfig {
	cfg := config.Defaults().Trading
	cfg.Bankroll = 10000
	return cfg
}

func TestSizeFractionalKellyCappedAtMaxStake(t *testing.T) {
	s := NewSizer(tradingCfg())
	// Model 62% vs market 50%: full Kelly is 0.24, quarter Kelly at full
	// confidence is 0.06, which the 5% cap trims to a 500 stake.
	rec, res := s.Size(domain.Edge{
		MatchID:     "m1",
		Outcome:     domain.OutcomeTeam1,
		Value:       0.12,
		Confidence:  1.0,
		ModelProb:   0.62,
		ImpliedProb: 0.50,
	}, domain.OrderSideBuy, time.Now())
	if res != SizeOK {
		t.Fatalf("result = %v, want sizeable position", res)
	}
	if math.Abs(rec.KellyFull-0.24) > 1e-9 {
		t.Errorf("full kelly = %.4f, want 0.24", rec.KellyFull)
	}
	if rec.StakeFraction != 0.05 {
		t.Errorf("stake fraction = %.4f, want capped 0.05", rec.StakeFraction)
	}
	if rec.Stake != 500.00 {
		t.Errorf("stake = %.2f, want 500.00", rec.Stake)
	}
	if rec.ID == "" || rec.Rationale == "" {
		t.Error("recommendation must carry an ID and rationale")
	}
}

func TestSizeConfidenceScalesStake(t *testing.T) {
	s := NewSizer(tradingCfg())
	edge := domain.Edge{ModelProb: 0.56, ImpliedProb: 0.50, Confidence: 0.5}
	rec, res := s.Size(edge, domain.OrderSideBuy, time.Now())
	if res != SizeOK {
		t.Fatalf("result = %v, want sizeable position", res)
	}
	// Full Kelly 0.12, quarter Kelly 0.03, halved by confidence.
	if math.Abs(rec.StakeFraction-0.015) > 1e-9 {
		t.Errorf("stake fraction = %.4f, want 0.015", rec.StakeFraction)
	}
}

func TestSizeSellSideMirrors(t *testing.T) {
	s := NewSizer(tradingCfg())
	rec, res := s.Size(domain.Edge{
		ModelProb:   0.40,
		ImpliedProb: 0.55,
		Confidence:  1.0,
	}, domain.OrderSideSell, time.Now())
	if res != SizeOK {
		t.Fatalf("result = %v, want sizeable sell position", res)
	}
	if rec.Side != domain.OrderSideSell {
		t.Errorf("side = %s, want sell", rec.Side)
	}
	if rec.Stake <= 0 {
		t.Errorf("stake = %.2f, want > 0", rec.Stake)
	}
}

func TestSizeDegenerateOdds(t *testing.T) {
	s := NewSizer(tradingCfg())
	for _, implied := range []float64{0.0, 1.0, 1.2, -0.1} {
		_, res := s.Size(domain.Edge{ModelProb: 0.6, ImpliedProb: implied, Confidence: 1.0}, domain.OrderSideBuy, time.Now())
		if res != SizeDegenerateOdds {
			t.Errorf("implied %.2f: result = %v, want degenerate odds", implied, res)
		}
	}
}

func TestSizeMinimumThresholds(t *testing.T) {
	// Defaults: min_edge 0.015, min_confidence 0.40.
	s := NewSizer(tradingCfg())

	// A healthy edge at rock-bottom confidence must not size.
	_, res := s.Size(domain.Edge{ModelProb: 0.62, ImpliedProb: 0.50, Confidence: 0.10}, domain.OrderSideBuy, time.Now())
	if res != SizeBelowThreshold {
		t.Errorf("confidence 0.10: result = %v, want below threshold", res)
	}

	// Full confidence over a sliver of edge must not size either.
	_, res = s.Size(domain.Edge{ModelProb: 0.51, ImpliedProb: 0.50, Confidence: 1.0}, domain.OrderSideBuy, time.Now())
	if res != SizeBelowThreshold {
		t.Errorf("edge 0.01: result = %v, want below threshold", res)
	}

	// Zero edge is a sign failure, never a trade.
	_, res = s.Size(domain.Edge{ModelProb: 0.50, ImpliedProb: 0.50, Confidence: 1.0}, domain.OrderSideBuy, time.Now())
	if res != SizeBelowThreshold {
		t.Errorf("zero edge: result = %v, want below threshold", res)
	}
}

func TestSizeZeroRoundingStake(t *testing.T) {
	cfg := tradingCfg()
	cfg.Bankroll = 0.10
	s := NewSizer(cfg)

	// The fraction is positive but the cent-floored stake is zero; this is
	// not a degenerate-odds condition.
	_, res := s.Size(domain.Edge{ModelProb: 0.56, ImpliedProb: 0.50, Confidence: 0.5}, domain.OrderSideBuy, time.Now())
	if res != SizeZeroStake {
		t.Errorf("result = %v, want zero stake", res)
	}
}

func TestEdgeCalculatorThresholds(t *testing.T) {
	cfg := config.Defaults()
	cfg.Trading.Bankroll = 10000
	c := NewEdgeCalculator(cfg.Trading, cfg.Market)

	est := domain.ProbabilityEstimate{MatchID: "m1", Team1Prob: 0.62, Team2Prob: 0.38, Confidence: 0.8}
	snap := domain.MarketSnapshot{MatchID: "m1", Outcome: domain.OutcomeTeam1, ImpliedProb: 0.50, Liquidity: 1000}

	edge, side, ok := c.Compute(est, snap)
	if !ok || side != domain.OrderSideBuy {
		t.Fatalf("ok=%v side=%s, want buy signal", ok, side)
	}
	if math.Abs(edge.Value-0.12) > 1e-9 {
		t.Errorf("edge = %.4f, want 0.12", edge.Value)
	}

	// A sliver of edge below the confidence-adjusted minimum is not tradeable.
	snap.ImpliedProb = 0.61
	if _, _, ok := c.Compute(est, snap); ok {
		t.Error("0.01 edge at 0.8 confidence should not trade")
	}

	// Market overpricing the outcome flips to a sell signal.
	snap.ImpliedProb = 0.75
	_, side, ok = c.Compute(est, snap)
	if !ok || side != domain.OrderSideSell {
		t.Errorf("ok=%v side=%s, want sell signal", ok, side)
	}
}

func TestEdgeCalculatorLowConfidence(t *testing.T) {
	cfg := config.Defaults()
	c := NewEdgeCalculator(cfg.Trading, cfg.Market)

	est := domain.ProbabilityEstimate{MatchID: "m1", Team1Prob: 0.70, Team2Prob: 0.30, Confidence: 0.3}
	snap := domain.MarketSnapshot{MatchID: "m1", Outcome: domain.OutcomeTeam1, ImpliedProb: 0.50, Liquidity: 1000}
	if _, _, ok := c.Compute(est, snap); ok {
		t.Error("confidence below minimum should never trade, regardless of edge")
	}
}

func TestEdgeCalculatorThinBookDiscount(t *testing.T) {
	cfg := config.Defaults()
	c := NewEdgeCalculator(cfg.Trading, cfg.Market)

	est := domain.ProbabilityEstimate{MatchID: "m1", Team1Prob: 0.62, Team2Prob: 0.38, Confidence: 0.9}
	deep := domain.MarketSnapshot{MatchID: "m1", Outcome: domain.OutcomeTeam1, ImpliedProb: 0.50, Liquidity: 1000}
	thin := deep
	thin.Liquidity = 50

	deepEdge, _, _ := c.Compute(est, deep)
	thinEdge, _, _ := c.Compute(est, thin)
	if thinEdge.Confidence >= deepEdge.Confidence {
		t.Errorf("thin book confidence %.3f should be below deep book %.3f",
			thinEdge.Confidence, deepEdge.Confidence)
	}
}
