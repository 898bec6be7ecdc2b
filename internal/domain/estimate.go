package domain

import "time"

// Outcome identifies a tradeable side of a match market.
type Outcome string

const (
	OutcomeTeam1 Outcome = "team1"
	OutcomeTeam2 Outcome = "team2"
)

// Opposite returns the other side of a two-outcome market.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeTeam1 {
		return OutcomeTeam2
	}
	return OutcomeTeam1
}

// ProbabilityEstimate is an immutable model output for one match. A new
// estimate supersedes the previous one; estimates are never mutated in place.
type ProbabilityEstimate struct {
	MatchID      string
	Team1Prob    float64
	Team2Prob    float64
	Confidence   float64
	ModelVersion string
	GeneratedAt  time.Time

	// Breakdown of the calculation, for rationale strings and debugging.
	BaseProb        float64
	GoldAdjust      float64
	KillAdjust      float64
	ObjectiveAdjust float64
	Explanation     string
}

// ProbFor returns the win probability for the given outcome.
func (e ProbabilityEstimate) ProbFor(outcome Outcome) float64 {
	if outcome == OutcomeTeam2 {
		return e.Team2Prob
	}
	return e.Team1Prob
}
