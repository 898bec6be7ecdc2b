package handler

import (
	"errors"
	"net/http"

	"github.com/colehagen/esportsbot/internal/domain"
)

// DecisionHandler serves the decision audit trail.
type DecisionHandler struct {
	store domain.DecisionStore
}

// NewDecisionHandler creates a DecisionHandler backed by the given store.
func NewDecisionHandler(store domain.DecisionStore) *DecisionHandler {
	return &DecisionHandler{store: store}
}

type decisionResponse struct {
	ID            string  `json:"id"`
	MatchID       string  `json:"match_id"`
	Outcome       string  `json:"outcome"`
	Side          string  `json:"side"`
	Stake         float64 `json:"stake"`
	StakeFraction float64 `json:"stake_fraction"`
	Edge          float64 `json:"edge"`
	Confidence    float64 `json:"confidence"`
	Status        string  `json:"status"`
	RejectReason  string  `json:"reject_reason,omitempty"`
	Rationale     string  `json:"rationale"`
	CreatedAt     string  `json:"created_at"`
}

func toDecisionResponse(d domain.Decision) decisionResponse {
	return decisionResponse{
		ID:            d.ID,
		MatchID:       d.MatchID,
		Outcome:       string(d.Outcome),
		Side:          string(d.Side),
		Stake:         d.Stake,
		StakeFraction: d.StakeFraction,
		Edge:          d.Edge,
		Confidence:    d.Confidence,
		Status:        string(d.Status),
		RejectReason:  string(d.RejectReason),
		Rationale:     d.Rationale,
		CreatedAt:     d.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// ListRecent handles GET /api/decisions.
func (h *DecisionHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		decisions []domain.Decision
		err       error
	)
	if matchID := r.URL.Query().Get("match_id"); matchID != "" {
		decisions, err = h.store.ListByMatch(r.Context(), matchID, opts)
	} else {
		decisions, err = h.store.ListRecent(r.Context(), opts.Limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list decisions")
		return
	}

	out := make([]decisionResponse, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, toDecisionResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"decisions": out,
		"count":     len(out),
	})
}

// GetByID handles GET /api/decisions/{id}.
func (h *DecisionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing decision id")
		return
	}

	d, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "decision not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load decision")
		return
	}
	writeJSON(w, http.StatusOK, toDecisionResponse(d))
}
