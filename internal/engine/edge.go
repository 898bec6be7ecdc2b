// Package engine runs the decision pipeline: model estimates are compared
// against market quotes, sized with fractional Kelly, and pushed through the
// risk gate.
package engine

import (
	"math"

	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/domain"
)

// EdgeCalculator compares model probabilities with market quotes and decides
// whether a tradeable edge exists.
type EdgeCalculator struct {
	minEdge       float64
	minConfidence float64
	liquidityRef  float64
}

// NewEdgeCalculator returns a calculator with thresholds from config.
func NewEdgeCalculator(trading config.TradingConfig, market config.MarketConfig) *EdgeCalculator {
	return &EdgeCalculator{
		minEdge:       trading.MinEdge,
		minConfidence: trading.MinConfidence,
		liquidityRef:  market.LiquidityRef,
	}
}

// Compute evaluates one outcome's quote against the estimate. It returns the
// edge and the side to take, or ok=false when no tradeable edge exists.
//
// The required edge scales up as confidence drops: at full confidence the
// configured minimum applies, at half confidence half again as much is
// required. Thin books discount confidence before the comparison.
func (c *EdgeCalculator) Compute(est domain.ProbabilityEstimate, snap domain.MarketSnapshot) (domain.Edge, domain.OrderSide, bool) {
	modelProb := est.ProbFor(snap.Outcome)
	value := modelProb - snap.ImpliedProb

	conf := est.Confidence * c.liquidityFactor(snap.Liquidity)
	edge := domain.Edge{
		MatchID:     snap.MatchID,
		Outcome:     snap.Outcome,
		Value:       value,
		Confidence:  conf,
		ModelProb:   modelProb,
		ImpliedProb: snap.ImpliedProb,
	}

	if conf < c.minConfidence {
		return edge, "", false
	}

	required := c.minEdge * (2.0 - conf)
	switch {
	case value >= required:
		return edge, domain.OrderSideBuy, true
	case -value >= required:
		return edge, domain.OrderSideSell, true
	default:
		return edge, "", false
	}
}

// liquidityFactor discounts confidence for thin order books. Books at or
// above the reference depth pass through untouched; empty books floor at a
// quarter weight.
func (c *EdgeCalculator) liquidityFactor(liquidity float64) float64 {
	if c.liquidityRef <= 0 {
		return 1.0
	}
	f := liquidity / c.liquidityRef
	return math.Min(math.Max(f, 0.25), 1.0)
}
