package market

import (
	"errors"
	"testing"
	"time"

	"github.com/colehagen/esportsbot/internal/domain"
)

func TestPutAndGet(t *testing.T) {
	s := New(30 * time.Second)
	now := time.Now()

	s.Put(domain.MarketSnapshot{
		MatchID:     "m1",
		Outcome:     domain.OutcomeTeam1,
		ImpliedProb: 0.55,
		Liquidity:   1200,
		Timestamp:   now,
	})

	snap, err := s.Get("m1", domain.OutcomeTeam1, now.Add(5*time.Second))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.ImpliedProb != 0.55 {
		t.Errorf("implied prob = %.3f, want 0.55", snap.ImpliedProb)
	}
}

func TestGetStaleQuote(t *testing.T) {
	s := New(30 * time.Second)
	now := time.Now()

	s.Put(domain.MarketSnapshot{
		MatchID:   "m1",
		Outcome:   domain.OutcomeTeam1,
		Timestamp: now,
	})

	// 60s old against a 30s bound.
	_, err := s.Get("m1", domain.OutcomeTeam1, now.Add(60*time.Second))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for stale quote", err)
	}
}

func TestPutIgnoresOutOfOrder(t *testing.T) {
	s := New(30 * time.Second)
	now := time.Now()

	s.Put(domain.MarketSnapshot{MatchID: "m1", Outcome: domain.OutcomeTeam1, ImpliedProb: 0.60, Timestamp: now})
	s.Put(domain.MarketSnapshot{MatchID: "m1", Outcome: domain.OutcomeTeam1, ImpliedProb: 0.40, Timestamp: now.Add(-time.Second)})

	snap, err := s.Get("m1", domain.OutcomeTeam1, now)
	if err != nil {
		t.Fatal(err)
	}
	if snap.ImpliedProb != 0.60 {
		t.Errorf("implied prob = %.3f, want newest quote 0.60", snap.ImpliedProb)
	}
}

func TestFreshAndRemove(t *testing.T) {
	s := New(30 * time.Second)
	now := time.Now()

	s.Put(domain.MarketSnapshot{MatchID: "m1", Outcome: domain.OutcomeTeam1, Timestamp: now})
	s.Put(domain.MarketSnapshot{MatchID: "m1", Outcome: domain.OutcomeTeam2, Timestamp: now.Add(-time.Minute)})
	s.Put(domain.MarketSnapshot{MatchID: "m2", Outcome: domain.OutcomeTeam1, Timestamp: now})

	fresh := s.Fresh("m1", now)
	if len(fresh) != 1 {
		t.Fatalf("fresh quotes = %d, want 1 (stale side excluded)", len(fresh))
	}

	s.Remove("m1")
	if s.Len() != 1 {
		t.Errorf("len after remove = %d, want 1", s.Len())
	}
	if _, err := s.Get("m1", domain.OutcomeTeam1, now); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after remove", err)
	}
}

func TestSweepStaleEvictsOrphanedQuotes(t *testing.T) {
	s := New(30 * time.Second)
	now := time.Now()

	// Quotes for a match that never started are only ever written, so the
	// sweep is the one path that reclaims them.
	s.Put(domain.MarketSnapshot{MatchID: "ghost", Outcome: domain.OutcomeTeam1, Timestamp: now.Add(-time.Minute)})
	s.Put(domain.MarketSnapshot{MatchID: "ghost", Outcome: domain.OutcomeTeam2, Timestamp: now.Add(-time.Hour)})
	s.Put(domain.MarketSnapshot{MatchID: "live", Outcome: domain.OutcomeTeam1, Timestamp: now})

	if removed := s.SweepStale(now); removed != 2 {
		t.Fatalf("swept %d quotes, want 2", removed)
	}
	if s.Len() != 1 {
		t.Errorf("len after sweep = %d, want 1", s.Len())
	}
	if _, err := s.Get("live", domain.OutcomeTeam1, now); err != nil {
		t.Errorf("fresh quote evicted by sweep: %v", err)
	}
}
