package domain

import "time"

// MarketSnapshot is the latest market-implied view of one outcome, produced
// by the market-data feed from order book prices. A snapshot older than the
// configured staleness bound is unusable and treated as absent at read time.
type MarketSnapshot struct {
	MatchID     string
	Outcome     Outcome
	ImpliedProb float64
	// Liquidity is the notional depth near the touch, in dollars.
	Liquidity float64
	Timestamp time.Time
}

// Age returns how old the snapshot is relative to now.
func (s MarketSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}
