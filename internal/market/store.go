// Package market caches the latest market quote per match outcome. Staleness
// is judged at read time against the caller's clock, never at write time.
package market

import (
	"fmt"
	"sync"
	"time"

	"github.com/colehagen/esportsbot/internal/domain"
)

type key struct {
	matchID string
	outcome domain.Outcome
}

// Store keeps the most recent snapshot per (match, outcome). A newer snapshot
// replaces the old one unconditionally; snapshots past the staleness bound
// are invisible to readers but remain until overwritten or the match is
// dropped.
type Store struct {
	mu        sync.RWMutex
	snapshots map[key]domain.MarketSnapshot
	bound     time.Duration
}

// New returns a snapshot store with the given staleness bound.
func New(stalenessBound time.Duration) *Store {
	return &Store{
		snapshots: make(map[key]domain.MarketSnapshot),
		bound:     stalenessBound,
	}
}

// Put stores a snapshot, replacing any previous quote for the same outcome.
// Out-of-order quotes older than the stored one are ignored.
func (s *Store) Put(snap domain.MarketSnapshot) {
	k := key{matchID: snap.MatchID, outcome: snap.Outcome}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.snapshots[k]; ok && snap.Timestamp.Before(cur.Timestamp) {
		return
	}
	s.snapshots[k] = snap
}

// Get returns the snapshot for an outcome if one exists and is fresh as of
// now. Missing and stale quotes both surface as ErrNotFound.
func (s *Store) Get(matchID string, outcome domain.Outcome, now time.Time) (domain.MarketSnapshot, error) {
	s.mu.RLock()
	snap, ok := s.snapshots[key{matchID: matchID, outcome: outcome}]
	s.mu.RUnlock()

	if !ok {
		return domain.MarketSnapshot{}, fmt.Errorf("quote %s/%s: %w", matchID, outcome, domain.ErrNotFound)
	}
	if snap.Age(now) > s.bound {
		return domain.MarketSnapshot{}, fmt.Errorf("quote %s/%s aged %s: %w",
			matchID, outcome, snap.Age(now).Round(time.Millisecond), domain.ErrNotFound)
	}
	return snap, nil
}

// Fresh returns all non-stale snapshots for a match as of now.
func (s *Store) Fresh(matchID string, now time.Time) []domain.MarketSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.MarketSnapshot
	for k, snap := range s.snapshots {
		if k.matchID == matchID && snap.Age(now) <= s.bound {
			out = append(out, snap)
		}
	}
	return out
}

// Remove drops all snapshots for a match.
func (s *Store) Remove(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.snapshots {
		if k.matchID == matchID {
			delete(s.snapshots, k)
		}
	}
}

// SweepStale evicts every snapshot past the staleness bound as of now and
// returns the number removed. Age only grows, so a swept quote could never
// have become readable again; this keeps quotes for matches that never
// start from accumulating.
func (s *Store) SweepStale(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, snap := range s.snapshots {
		if snap.Age(now) > s.bound {
			delete(s.snapshots, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored snapshots, stale ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
