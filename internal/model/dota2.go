package model

import (
	"fmt"
	"time"

	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/domain"
)

const dota2Version = "dota2-v1"

// Dota2 estimates win probability for Dota 2 matches from the net worth
// differential, kill differential, towers, and Roshan control.
type Dota2 struct {
	params config.ModelConfig
}

// NewDota2 returns a Dota 2 model with the given parameters.
func NewDota2(params config.ModelConfig) *Dota2 {
	return &Dota2{params: params}
}

var _ Model = (*Dota2)(nil)

func (m *Dota2) Version() string { return dota2Version }

// Estimate computes team 1's win probability from the current snapshot.
// Net worth swings matter more than raw kills in Dota, so the economy term
// uses a wider scale than the LoL model and Roshan control replaces the
// dragon/baron objective set.
func (m *Dota2) Estimate(state domain.MatchState) domain.ProbabilityEstimate {
	minutes := state.ElapsedMinutes()

	nwAdj := economyAdjust(float64(state.GoldDiff()), m.params.DotaNetWorthScale)
	killAdj := clamp(float64(state.KillDiff())*m.params.KillImpact, -0.10, 0.10)

	objAdj := float64(state.TowerDiff()) * m.params.TowerImpact
	objAdj += float64(state.Team1.RoshanKills-state.Team2.RoshanKills) * m.params.RoshanImpact
	objAdj += buffDiff(state.Team1.HasAegis, state.Team2.HasAegis) * m.params.AegisImpact

	tf := timeFactor(minutes)
	prob := clamp(0.5+(nwAdj+killAdj+objAdj)*tf, m.params.Epsilon, 1.0-m.params.Epsilon)

	return domain.ProbabilityEstimate{
		MatchID:      state.MatchID,
		Team1Prob:    prob,
		Team2Prob:    1.0 - prob,
		Confidence:   confidence(minutes, prob),
		ModelVersion: dota2Version,
		GeneratedAt:  time.Now(),

		BaseProb:        0.5,
		GoldAdjust:      nwAdj,
		KillAdjust:      killAdj,
		ObjectiveAdjust: objAdj,
		Explanation: fmt.Sprintf("networth %+d (%.3f), kills %+d (%.3f), objectives %.3f, time x%.2f",
			state.GoldDiff(), nwAdj, state.KillDiff(), killAdj, objAdj, tf),
	}
}
