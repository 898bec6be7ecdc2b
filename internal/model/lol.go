package model

import (
	"fmt"
	"time"

	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/domain"
)

const lolVersion = "lol-v1"

// LoL estimates win probability for League of Legends matches from the gold
// differential, kill differential, and objective control.
type LoL struct {
	params config.ModelConfig
}

// NewLoL returns a League of Legends model with the given parameters.
func NewLoL(params config.ModelConfig) *LoL {
	return &LoL{params: params}
}

var _ Model = (*LoL)(nil)

func (m *LoL) Version() string { return lolVersion }

// Estimate computes team 1's win probability from the current snapshot.
// With no signal (fresh match, even stats) the estimate stays at the 0.5
// prior with low confidence.
func (m *LoL) Estimate(state domain.MatchState) domain.ProbabilityEstimate {
	minutes := state.ElapsedMinutes()

	goldAdj := economyAdjust(float64(state.GoldDiff()), m.params.LoLGoldScale)
	killAdj := clamp(float64(state.KillDiff())*m.params.KillImpact, -0.10, 0.10)

	objAdj := float64(state.TowerDiff()) * m.params.TowerImpact
	objAdj += float64(state.Team1.Dragons-state.Team2.Dragons) * m.params.DragonImpact
	objAdj += soulDiff(state.Team1, state.Team2) * m.params.DragonSoulImpact
	objAdj += elderDiff(state.Team1, state.Team2) * m.params.ElderImpact
	objAdj += buffDiff(state.Team1.HasBaronBuff, state.Team2.HasBaronBuff) * m.params.BaronBuffImpact
	objAdj += float64(state.Team1.Barons-state.Team2.Barons) * m.params.BaronImpact

	tf := timeFactor(minutes)
	prob := clamp(0.5+(goldAdj+killAdj+objAdj)*tf, m.params.Epsilon, 1.0-m.params.Epsilon)

	return domain.ProbabilityEstimate{
		MatchID:      state.MatchID,
		Team1Prob:    prob,
		Team2Prob:    1.0 - prob,
		Confidence:   confidence(minutes, prob),
		ModelVersion: lolVersion,
		GeneratedAt:  time.Now(),

		BaseProb:        0.5,
		GoldAdjust:      goldAdj,
		KillAdjust:      killAdj,
		ObjectiveAdjust: objAdj,
		Explanation: fmt.Sprintf("gold %+d (%.3f), kills %+d (%.3f), objectives %.3f, time x%.2f",
			state.GoldDiff(), goldAdj, state.KillDiff(), killAdj, objAdj, tf),
	}
}

func soulDiff(t1, t2 domain.TeamState) float64 {
	return buffDiff(t1.HasDragonSoul, t2.HasDragonSoul)
}

func elderDiff(t1, t2 domain.TeamState) float64 {
	return buffDiff(t1.HasElder, t2.HasElder)
}

func buffDiff(t1, t2 bool) float64 {
	switch {
	case t1 && !t2:
		return 1.0
	case t2 && !t1:
		return -1.0
	default:
		return 0.0
	}
}
