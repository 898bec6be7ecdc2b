package handler

import (
	"encoding/json"
	"net/http"

	"github.com/colehagen/esportsbot/internal/risk"
)

// RiskHandler exposes the risk gate state and manual halt controls.
type RiskHandler struct {
	gate *risk.Gate
}

// NewRiskHandler creates a RiskHandler for the given gate.
func NewRiskHandler(gate *risk.Gate) *RiskHandler {
	return &RiskHandler{gate: gate}
}

// Status handles GET /api/risk.
func (h *RiskHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gate.Snapshot())
}

// Halt handles POST /api/risk/halt.
func (h *RiskHandler) Halt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Reason == "" {
		body.Reason = "manual halt"
	}
	h.gate.Halt(body.Reason)
	writeJSON(w, http.StatusOK, h.gate.Snapshot())
}

// Resume handles POST /api/risk/resume.
func (h *RiskHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.gate.Resume()
	writeJSON(w, http.StatusOK, h.gate.Snapshot())
}
