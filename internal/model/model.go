// Package model converts match state into calibrated win probabilities.
package model

import (
	"fmt"
	"math"

	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/domain"
)

// Model produces a probability estimate from a match snapshot. Implementations
// are stateless; all tunables come from config.
type Model interface {
	// Estimate returns win probabilities for both teams. Probabilities always
	// sum to 1 and are clamped away from 0 and 1.
	Estimate(state domain.MatchState) domain.ProbabilityEstimate

	// Version identifies the model for audit records.
	Version() string
}

// ForGame returns the model for the given game type.
func ForGame(game domain.GameType, params config.ModelConfig) (Model, error) {
	switch game {
	case domain.GameLoL:
		return NewLoL(params), nil
	case domain.GameDota2:
		return NewDota2(params), nil
	default:
		return nil, fmt.Errorf("no model for game %q", game)
	}
}

// economyAdjust maps a gold or net worth differential onto a bounded
// probability shift. The sigmoid saturates so blowout leads stop adding
// signal, and the 0.4 weight keeps economy from dominating objectives.
func economyAdjust(diff float64, scale float64) float64 {
	return (2.0/(1.0+math.Exp(-diff/scale)) - 1.0) * 0.4
}

// timeFactor scales adjustments by game progress. Early leads are volatile
// and get discounted; late leads are close to decisive.
func timeFactor(minutes float64) float64 {
	f := 0.6 + minutes/30.0*0.7
	return math.Min(f, 1.3)
}

// confidence blends how far the game has progressed with how decisive the
// current lead is. A fresh game with a coin-flip probability scores low.
func confidence(minutes float64, prob float64) float64 {
	timeConf := clamp(minutes/25.0, 0.2, 1.0)
	leadConf := 0.5 + math.Abs(prob-0.5)
	return clamp((timeConf+leadConf)/2.0, 0.0, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
