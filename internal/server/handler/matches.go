package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/colehagen/esportsbot/internal/domain"
	"github.com/colehagen/esportsbot/internal/market"
	"github.com/colehagen/esportsbot/internal/state"
)

// MatchHandler serves live match state and the retirement archive.
type MatchHandler struct {
	states  *state.Store
	markets *market.Store
	archive domain.MatchArchiveStore
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(states *state.Store, markets *market.Store, archive domain.MatchArchiveStore) *MatchHandler {
	return &MatchHandler{states: states, markets: markets, archive: archive}
}

type teamResponse struct {
	Name   string `json:"name"`
	Kills  int    `json:"kills"`
	Gold   int    `json:"gold,omitempty"`
	Towers int    `json:"towers"`

	NetWorth int `json:"net_worth,omitempty"`
}

type quoteResponse struct {
	Outcome     string  `json:"outcome"`
	ImpliedProb float64 `json:"implied_prob"`
	Liquidity   float64 `json:"liquidity"`
	AgeSeconds  float64 `json:"age_seconds"`
}

type matchResponse struct {
	MatchID        string          `json:"match_id"`
	Game           string          `json:"game"`
	Phase          string          `json:"phase"`
	ElapsedSeconds int             `json:"elapsed_seconds"`
	Team1          teamResponse    `json:"team1"`
	Team2          teamResponse    `json:"team2"`
	Quotes         []quoteResponse `json:"quotes,omitempty"`
}

func toMatchResponse(m domain.MatchState, quotes []domain.MarketSnapshot, now time.Time) matchResponse {
	resp := matchResponse{
		MatchID:        m.MatchID,
		Game:           string(m.Game),
		Phase:          string(m.Phase),
		ElapsedSeconds: m.ElapsedSeconds,
		Team1:          toTeamResponse(m.Team1),
		Team2:          toTeamResponse(m.Team2),
	}
	for _, q := range quotes {
		resp.Quotes = append(resp.Quotes, quoteResponse{
			Outcome:     string(q.Outcome),
			ImpliedProb: q.ImpliedProb,
			Liquidity:   q.Liquidity,
			AgeSeconds:  q.Age(now).Seconds(),
		})
	}
	return resp
}

func toTeamResponse(t domain.TeamState) teamResponse {
	return teamResponse{
		Name:     t.Name,
		Kills:    t.Kills,
		Gold:     t.Gold,
		Towers:   t.Towers,
		NetWorth: t.NetWorth,
	}
}

// ListLive handles GET /api/matches.
func (h *MatchHandler) ListLive(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	live := h.states.List()
	out := make([]matchResponse, 0, len(live))
	for _, m := range live {
		out = append(out, toMatchResponse(m, h.markets.Fresh(m.MatchID, now), now))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matches": out,
		"count":   len(out),
	})
}

// GetByID handles GET /api/matches/{id}.
func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := h.states.Get(id)
	if errors.Is(err, domain.ErrUnknownMatch) {
		writeError(w, http.StatusNotFound, "match not tracked")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load match")
		return
	}
	now := time.Now()
	writeJSON(w, http.StatusOK, toMatchResponse(m, h.markets.Fresh(id, now), now))
}

// ListArchive handles GET /api/matches/archive.
func (h *MatchHandler) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive store not configured")
		return
	}
	opts := parseListOpts(r)
	summaries, err := h.archive.ListRecent(r.Context(), opts.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list archive")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matches": summaries,
		"count":   len(summaries),
	})
}
