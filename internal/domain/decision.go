package domain

import "time"

// OrderSide indicates whether a recommendation buys or sells the outcome.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Edge is the signed difference between the model probability and the
// market-implied probability for one outcome. Edges are derived per decision
// cycle and never persisted.
type Edge struct {
	MatchID     string
	Outcome     Outcome
	Value       float64 // model - implied, positive means the market underprices the outcome
	Confidence  float64
	ModelProb   float64
	ImpliedProb float64
}

// PositionRecommendation is the sizer's proposal for one trade. Ownership
// passes to the risk gate and then to the order-execution collaborator.
type PositionRecommendation struct {
	ID            string
	MatchID       string
	Outcome       Outcome
	Side          OrderSide
	StakeFraction float64 // fraction of bankroll
	Stake         float64 // dollars
	Edge          float64
	Confidence    float64
	KellyFull     float64 // unscaled Kelly fraction, for the rationale
	Rationale     string
	CreatedAt     time.Time
}

// RejectReason is the typed cause surfaced when the risk gate refuses a
// recommendation.
type RejectReason string

const (
	RejectExposureExceeded RejectReason = "exposure_exceeded"
	RejectBelowMinimum     RejectReason = "below_minimum_stake"
	RejectAboveMaximum     RejectReason = "above_maximum_stake"
	RejectCooldown         RejectReason = "cooldown"
	RejectHalted           RejectReason = "halted"
)

// Err maps the reason to its sentinel so callers can match with errors.Is.
// A stake above the configured maximum is a cap breach like exposure.
func (r RejectReason) Err() error {
	switch r {
	case RejectBelowMinimum:
		return ErrBelowMinimumStake
	case RejectCooldown:
		return ErrCooldown
	case RejectHalted:
		return ErrTradingHalted
	default:
		return ErrExposureExceeded
	}
}

// ApprovedTrade is a recommendation that passed the risk gate with its stake
// already reserved against the exposure ledger.
type ApprovedTrade struct {
	Recommendation PositionRecommendation
	ApprovedAt     time.Time
}

// Rejection records a refused recommendation together with the reason.
type Rejection struct {
	Recommendation PositionRecommendation
	Reason         RejectReason
	Detail         string
	RejectedAt     time.Time
}

// DecisionStatus distinguishes persisted decision rows.
type DecisionStatus string

const (
	DecisionApproved DecisionStatus = "approved"
	DecisionRejected DecisionStatus = "rejected"
)

// Decision is the audit-trail record of one emitted decision, approved or
// rejected, persisted for later analysis.
type Decision struct {
	ID            string
	MatchID       string
	Outcome       Outcome
	Side          OrderSide
	Stake         float64
	StakeFraction float64
	Edge          float64
	Confidence    float64
	Status        DecisionStatus
	RejectReason  RejectReason
	Rationale     string
	CreatedAt     time.Time
}

// WarningKind classifies non-fatal conditions surfaced to observability.
type WarningKind string

const (
	WarnDegenerateOdds WarningKind = "degenerate_odds"
	WarnStaleEvent     WarningKind = "stale_event"
	WarnUnknownMatch   WarningKind = "unknown_match"
	WarnMatchRetired   WarningKind = "match_retired"
)

// Warning is a fire-and-forget observability notification.
type Warning struct {
	Kind    WarningKind
	MatchID string
	Detail  string
	At      time.Time
}

// MatchSummary is the archived record of a retired match.
type MatchSummary struct {
	MatchID        string
	Game           GameType
	Phase          MatchPhase
	Winner         int
	FinalTeam1Prob float64
	Decisions      int
	StartedAt      time.Time
	RetiredAt      time.Time
}
