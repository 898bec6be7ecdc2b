package model

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/domain"
)

func testParams() config.ModelConfig {
	return config.Defaults().Model
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoLEvenMatchIsCoinFlip(t *testing.T) {
	m := NewLoL(testParams())
	est := m.Estimate(domain.MatchState{
		MatchID:        "m1",
		Game:           domain.GameLoL,
		ElapsedSeconds: 600,
	})
	if math.Abs(est.Team1Prob-0.5) > 1e-9 {
		t.Errorf("even match prob = %.4f, want 0.5", est.Team1Prob)
	}
	if math.Abs(est.Team1Prob+est.Team2Prob-1.0) > 1e-9 {
		t.Errorf("probs sum to %.4f, want 1.0", est.Team1Prob+est.Team2Prob)
	}
}

func TestLoLGoldLeadRaisesProbability(t *testing.T) {
	m := NewLoL(testParams())
	st := domain.MatchState{
		MatchID:        "m1",
		Game:           domain.GameLoL,
		ElapsedSeconds: 1200,
		Team1:          domain.TeamState{Gold: 38000, Kills: 10, Towers: 4},
		Team2:          domain.TeamState{Gold: 30000, Kills: 4, Towers: 1},
	}
	est := m.Estimate(st)
	if est.Team1Prob <= 0.6 {
		t.Errorf("team1 prob = %.4f with 8k gold lead, want > 0.6", est.Team1Prob)
	}

	// Mirrored state must mirror the probability.
	mirror := st
	mirror.Team1, mirror.Team2 = st.Team2, st.Team1
	mest := m.Estimate(mirror)
	if math.Abs(mest.Team2Prob-est.Team1Prob) > 1e-9 {
		t.Errorf("mirrored prob = %.4f, want %.4f", mest.Team2Prob, est.Team1Prob)
	}
}

func TestLoLProbabilityClamped(t *testing.T) {
	params := testParams()
	m := NewLoL(params)
	est := m.Estimate(domain.MatchState{
		MatchID:        "m1",
		Game:           domain.GameLoL,
		ElapsedSeconds: 2400,
		Team1: domain.TeamState{
			Gold: 90000, Kills: 40, Towers: 11,
			Dragons: 4, Barons: 2, HasDragonSoul: true, HasElder: true, HasBaronBuff: true,
		},
		Team2: domain.TeamState{Gold: 40000},
	})
	if est.Team1Prob > 1.0-params.Epsilon {
		t.Errorf("prob = %.4f exceeds clamp %.4f", est.Team1Prob, 1.0-params.Epsilon)
	}
	if est.Team2Prob < params.Epsilon {
		t.Errorf("underdog prob = %.4f below clamp %.4f", est.Team2Prob, params.Epsilon)
	}
}

func TestConfidenceGrowsWithTimeAndLead(t *testing.T) {
	m := NewLoL(testParams())

	early := m.Estimate(domain.MatchState{MatchID: "m1", ElapsedSeconds: 120})
	late := m.Estimate(domain.MatchState{
		MatchID:        "m1",
		ElapsedSeconds: 1800,
		Team1:          domain.TeamState{Gold: 45000, Kills: 15, Towers: 6},
		Team2:          domain.TeamState{Gold: 35000, Kills: 5, Towers: 1},
	})
	if late.Confidence <= early.Confidence {
		t.Errorf("late confidence %.3f should exceed early %.3f", late.Confidence, early.Confidence)
	}
}

func TestDota2NetWorthAndRoshan(t *testing.T) {
	m := NewDota2(testParams())
	est := m.Estimate(domain.MatchState{
		MatchID:        "d1",
		Game:           domain.GameDota2,
		ElapsedSeconds: 1500,
		Team1:          domain.TeamState{NetWorth: 60000, Kills: 20, Towers: 5, RoshanKills: 1, HasAegis: true},
		Team2:          domain.TeamState{NetWorth: 48000, Kills: 12, Towers: 2},
	})
	if est.Team1Prob <= 0.6 {
		t.Errorf("team1 prob = %.4f with 12k net worth lead and aegis, want > 0.6", est.Team1Prob)
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	st := domain.MatchState{
		MatchID:        "m1",
		Game:           domain.GameLoL,
		ElapsedSeconds: 1400,
		Team1:          domain.TeamState{Gold: 41000, Kills: 12, Towers: 5, Dragons: 3},
		Team2:          domain.TeamState{Gold: 36000, Kills: 9, Towers: 2, Dragons: 1},
	}
	m := NewLoL(testParams())

	a := m.Estimate(st)
	b := m.Estimate(st)
	if a.Team1Prob != b.Team1Prob || a.Team2Prob != b.Team2Prob || a.Confidence != b.Confidence {
		t.Errorf("repeated estimates differ: %.6f/%.6f/%.6f vs %.6f/%.6f/%.6f",
			a.Team1Prob, a.Team2Prob, a.Confidence, b.Team1Prob, b.Team2Prob, b.Confidence)
	}
	if a.Explanation != b.Explanation {
		t.Error("repeated estimates should produce the same explanation")
	}
}

func TestForGameUnknown(t *testing.T) {
	if _, err := ForGame(domain.GameType("starcraft"), testParams()); err == nil {
		t.Fatal("expected error for unsupported game")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	cfg := config.Defaults().Registry
	r := NewRegistry(testParams(), cfg, testLogger())
	now := time.Now()

	if _, err := r.ModelFor("m1"); !errors.Is(err, domain.ErrUnknownMatch) {
		t.Fatalf("err = %v, want ErrUnknownMatch", err)
	}

	if err := r.Activate("m1", domain.GameLoL, now); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ModelFor("m1"); err != nil {
		t.Fatalf("ModelFor after activate: %v", err)
	}

	if !r.Retire("m1", now) {
		t.Fatal("Retire returned false for active match")
	}
	if _, err := r.ModelFor("m1"); !errors.Is(err, domain.ErrMatchRetired) {
		t.Fatalf("err = %v, want ErrMatchRetired", err)
	}
	if r.Retire("m1", now) {
		t.Error("retiring twice should return false")
	}
}

func TestRegistrySweepRetiresInactive(t *testing.T) {
	cfg := config.Defaults().Registry
	r := NewRegistry(testParams(), cfg, testLogger())
	now := time.Now()

	var retired []string
	r.OnRetire = func(matchID string, _ domain.GameType) {
		retired = append(retired, matchID)
	}

	if err := r.Activate("idle", domain.GameLoL, now); err != nil {
		t.Fatal(err)
	}
	if err := r.Activate("busy", domain.GameDota2, now); err != nil {
		t.Fatal(err)
	}

	later := now.Add(cfg.InactivityTimeout.Duration + time.Minute)
	r.Touch("busy", later)

	ids := r.Sweep(later)
	if len(ids) != 1 || ids[0] != "idle" {
		t.Fatalf("swept %v, want [idle]", ids)
	}
	if len(retired) != 1 || retired[0] != "idle" {
		t.Fatalf("OnRetire called with %v, want [idle]", retired)
	}
	if _, err := r.ModelFor("busy"); err != nil {
		t.Errorf("busy match should remain active: %v", err)
	}

	// Tombstone is dropped after the grace period.
	purge := later.Add(cfg.RetireGrace.Duration + time.Minute)
	r.Sweep(purge)
	if _, err := r.ModelFor("idle"); !errors.Is(err, domain.ErrUnknownMatch) {
		t.Errorf("err = %v, want ErrUnknownMatch after tombstone purge", err)
	}
}
