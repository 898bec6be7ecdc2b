package state

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/colehagen/esportsbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startEvent(matchID string, at time.Time) domain.GameEvent {
	return domain.GameEvent{
		MatchID:   matchID,
		Game:      domain.GameLoL,
		Type:      domain.EventMatchStart,
		Timestamp: at,
		Sync: &domain.StateSync{
			Team1:  domain.TeamState{Name: "T1"},
			Team2:  domain.TeamState{Name: "GEN"},
			BestOf: 3,
		},
	}
}

func TestApplyMatchStart(t *testing.T) {
	s := New(testLogger())
	now := time.Now()

	m, err := s.Apply(startEvent("m1", now))
	if err != nil {
		t.Fatalf("Apply(match_start): %v", err)
	}
	if m.Phase != domain.PhaseLive {
		t.Errorf("phase = %s, want live", m.Phase)
	}
	if m.BestOf != 3 {
		t.Errorf("best of = %d, want 3", m.BestOf)
	}
	if s.Len() != 1 {
		t.Errorf("tracked matches = %d, want 1", s.Len())
	}
}

func TestApplyUnknownMatch(t *testing.T) {
	s := New(testLogger())

	_, err := s.Apply(domain.GameEvent{
		MatchID:   "ghost",
		Type:      domain.EventKill,
		Team:      1,
		Timestamp: time.Now(),
	})
	if !errors.Is(err, domain.ErrUnknownMatch) {
		t.Fatalf("err = %v, want ErrUnknownMatch", err)
	}
}

func TestApplyStaleEvent(t *testing.T) {
	s := New(testLogger())
	now := time.Now()

	if _, err := s.Apply(startEvent("m1", now)); err != nil {
		t.Fatal(err)
	}
	_, err := s.Apply(domain.GameEvent{
		MatchID:   "m1",
		Type:      domain.EventKill,
		Team:      1,
		Timestamp: now.Add(-time.Minute),
	})
	if !errors.Is(err, domain.ErrStaleEvent) {
		t.Fatalf("err = %v, want ErrStaleEvent", err)
	}

	// State must be unchanged by the rejected event.
	m, err := s.Get("m1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Team1.Kills != 0 {
		t.Errorf("kills = %d after stale event, want 0", m.Team1.Kills)
	}
}

func TestApplyIncrementalEvents(t *testing.T) {
	s := New(testLogger())
	now := time.Now()

	if _, err := s.Apply(startEvent("m1", now)); err != nil {
		t.Fatal(err)
	}

	steps := []domain.GameEvent{
		{MatchID: "m1", Type: domain.EventKill, Team: 1, Timestamp: now.Add(time.Second), ElapsedSeconds: 120},
		{MatchID: "m1", Type: domain.EventKill, Team: 1, Timestamp: now.Add(2 * time.Second), ElapsedSeconds: 180},
		{MatchID: "m1", Type: domain.EventTower, Team: 2, Timestamp: now.Add(3 * time.Second), ElapsedSeconds: 600},
		{MatchID: "m1", Type: domain.EventDragon, Team: 1, Context: "soul", Timestamp: now.Add(4 * time.Second), ElapsedSeconds: 1500},
		{MatchID: "m1", Type: domain.EventBaron, Team: 1, Timestamp: now.Add(5 * time.Second), ElapsedSeconds: 1600},
	}
	for _, ev := range steps {
		if _, err := s.Apply(ev); err != nil {
			t.Fatalf("Apply(%s): %v", ev.Type, err)
		}
	}

	m, err := s.Get("m1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Team1.Kills != 2 || m.Team2.Deaths != 2 {
		t.Errorf("kills/deaths = %d/%d, want 2/2", m.Team1.Kills, m.Team2.Deaths)
	}
	if m.Team2.Towers != 1 {
		t.Errorf("team2 towers = %d, want 1", m.Team2.Towers)
	}
	if !m.Team1.HasDragonSoul {
		t.Error("team1 should hold dragon soul")
	}
	if !m.Team1.HasBaronBuff || m.Team1.Barons != 1 {
		t.Error("team1 should hold baron buff")
	}
	if m.ElapsedSeconds != 1600 {
		t.Errorf("elapsed = %d, want 1600", m.ElapsedSeconds)
	}
}

func TestApplyAfterMatchEnd(t *testing.T) {
	s := New(testLogger())
	now := time.Now()

	if _, err := s.Apply(startEvent("m1", now)); err != nil {
		t.Fatal(err)
	}
	m, err := s.Apply(domain.GameEvent{
		MatchID:   "m1",
		Type:      domain.EventMatchEnd,
		Winner:    2,
		Timestamp: now.Add(time.Second),
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Phase != domain.PhaseFinished {
		t.Errorf("phase = %s, want finished", m.Phase)
	}
	if m.Team2MapScore != 1 {
		t.Errorf("team2 map score = %d, want 1", m.Team2MapScore)
	}

	_, err = s.Apply(domain.GameEvent{
		MatchID:   "m1",
		Type:      domain.EventKill,
		Team:      1,
		Timestamp: now.Add(2 * time.Second),
	})
	if !errors.Is(err, domain.ErrMatchFinished) {
		t.Fatalf("err = %v, want ErrMatchFinished", err)
	}
}

func TestApplyReturnsCopy(t *testing.T) {
	s := New(testLogger())
	now := time.Now()

	m, err := s.Apply(startEvent("m1", now))
	if err != nil {
		t.Fatal(err)
	}
	m.Team1.Kills = 99

	got, err := s.Get("m1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Team1.Kills != 0 {
		t.Error("mutating a returned snapshot must not affect stored state")
	}
}
