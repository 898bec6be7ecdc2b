package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/domain"
)

// SizeResult classifies the outcome of a sizing attempt.
type SizeResult int

const (
	// SizeOK means a recommendation was produced.
	SizeOK SizeResult = iota
	// SizeDegenerateOdds means the quoted price yields no usable odds.
	SizeDegenerateOdds
	// SizeBelowThreshold means the edge or confidence failed the minimum filter.
	SizeBelowThreshold
	// SizeZeroStake means the computed stake rounded to zero.
	SizeZeroStake
)

// Sizer turns an edge into a stake using fractional Kelly, scaled by
// confidence and capped at a fixed share of bankroll.
type Sizer struct {
	bankroll      float64
	kellyFraction float64
	maxStakePct   float64
	minEdge       float64
	minConfidence float64
}

// NewSizer returns a sizer with parameters from config.
func NewSizer(cfg config.TradingConfig) *Sizer {
	return &Sizer{
		bankroll:      cfg.Bankroll,
		kellyFraction: cfg.KellyFraction,
		maxStakePct:   cfg.MaxStakePct,
		minEdge:       cfg.MinEdge,
		minConfidence: cfg.MinConfidence,
	}
}

// Size produces a recommendation for the given edge and side, or reports why
// none can be made: degenerate odds (price at or outside [0, 1]), edge or
// confidence under the configured minimums, or a stake that rounds to zero.
//
// For a buy the position wins with the model probability at the quoted price;
// a sell mirrors both. Full Kelly is (b*p - q) / b with b the net odds, then
// scaled by the Kelly fraction and confidence, and capped at the maximum
// stake share of bankroll.
func (s *Sizer) Size(edge domain.Edge, side domain.OrderSide, now time.Time) (domain.PositionRecommendation, SizeResult) {
	p := edge.ModelProb
	price := edge.ImpliedProb
	if side == domain.OrderSideSell {
		p = 1.0 - p
		price = 1.0 - price
	}

	if price <= 0 || price >= 1 {
		return domain.PositionRecommendation{}, SizeDegenerateOdds
	}

	b := 1.0/price - 1.0
	if b <= 0 {
		return domain.PositionRecommendation{}, SizeDegenerateOdds
	}

	// The side-relative edge and confidence must both clear their minimums;
	// a noise trade is worse than no trade.
	if p-price < s.minEdge || edge.Confidence < s.minConfidence {
		return domain.PositionRecommendation{}, SizeBelowThreshold
	}

	q := 1.0 - p
	kellyFull := (b*p - q) / b
	if kellyFull <= 0 {
		return domain.PositionRecommendation{}, SizeBelowThreshold
	}

	fraction := kellyFull * s.kellyFraction * edge.Confidence
	if fraction > s.maxStakePct {
		fraction = s.maxStakePct
	}

	stake := math.Floor(fraction*s.bankroll*100) / 100
	if stake <= 0 {
		return domain.PositionRecommendation{}, SizeZeroStake
	}

	return domain.PositionRecommendation{
		ID:            uuid.NewString(),
		MatchID:       edge.MatchID,
		Outcome:       edge.Outcome,
		Side:          side,
		StakeFraction: fraction,
		Stake:         stake,
		Edge:          edge.Value,
		Confidence:    edge.Confidence,
		KellyFull:     kellyFull,
		Rationale: fmt.Sprintf("%s %s: model %.3f vs market %.3f (edge %+.3f), kelly %.3f x %.2f x conf %.2f -> %.4f of bankroll",
			side, edge.Outcome, edge.ModelProb, edge.ImpliedProb, edge.Value,
			kellyFull, s.kellyFraction, edge.Confidence, fraction),
		CreatedAt: now,
	}, SizeOK
}
