// Package state maintains the authoritative in-memory snapshot of every
// tracked match. Events mutate snapshots; nothing downstream sees partial
// updates.
package state

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/colehagen/esportsbot/internal/domain"
)

// Store holds the current MatchState for every tracked match. All access is
// serialized through an internal mutex; Apply returns a copy of the updated
// state so callers never observe concurrent mutation.
type Store struct {
	mu      sync.RWMutex
	matches map[string]*domain.MatchState
	logger  *slog.Logger
}

// New returns an empty match state store.
func New(logger *slog.Logger) *Store {
	return &Store{
		matches: make(map[string]*domain.MatchState),
		logger:  logger.With(slog.String("component", "state_store")),
	}
}

// Apply folds a game event into the stored state and returns the updated
// snapshot. Events older than the current state are rejected with
// ErrStaleEvent. Non-start events for untracked matches return
// ErrUnknownMatch; any event after match_end returns ErrMatchFinished.
func (s *Store) Apply(ev domain.GameEvent) (domain.MatchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[ev.MatchID]

	if ev.Type == domain.EventMatchStart {
		if ok && m.Phase == domain.PhaseLive {
			// Duplicate start for a live match is treated as a full resync.
			s.logger.Warn("duplicate match_start, resyncing", slog.String("match_id", ev.MatchID))
		}
		m = &domain.MatchState{
			MatchID: ev.MatchID,
			Game:    ev.Game,
			Phase:   domain.PhaseLive,
			BestOf:  1,
		}
		if ev.Sync != nil {
			m.Team1 = ev.Sync.Team1
			m.Team2 = ev.Sync.Team2
			if ev.Sync.BestOf > 0 {
				m.BestOf = ev.Sync.BestOf
			}
		}
		m.ElapsedSeconds = ev.ElapsedSeconds
		m.UpdatedAt = ev.Timestamp
		s.matches[ev.MatchID] = m
		s.logger.Info("match tracked",
			slog.String("match_id", ev.MatchID),
			slog.String("game", string(ev.Game)))
		return *m, nil
	}

	if !ok {
		return domain.MatchState{}, fmt.Errorf("apply %s for %s: %w", ev.Type, ev.MatchID, domain.ErrUnknownMatch)
	}
	if m.Phase == domain.PhaseFinished {
		return domain.MatchState{}, fmt.Errorf("apply %s for %s: %w", ev.Type, ev.MatchID, domain.ErrMatchFinished)
	}
	if !ev.Timestamp.IsZero() && ev.Timestamp.Before(m.UpdatedAt) {
		return domain.MatchState{}, fmt.Errorf("apply %s for %s (event %s < state %s): %w",
			ev.Type, ev.MatchID,
			ev.Timestamp.Format(time.RFC3339Nano), m.UpdatedAt.Format(time.RFC3339Nano),
			domain.ErrStaleEvent)
	}

	switch ev.Type {
	case domain.EventStateSync:
		if ev.Sync != nil {
			m.Team1 = ev.Sync.Team1
			m.Team2 = ev.Sync.Team2
			if ev.Sync.BestOf > 0 {
				m.BestOf = ev.Sync.BestOf
			}
		}

	case domain.EventKill:
		if t := s.team(m, ev.Team); t != nil {
			t.Kills++
			if o := s.team(m, otherTeam(ev.Team)); o != nil {
				o.Deaths++
			}
		}

	case domain.EventTower:
		if t := s.team(m, ev.Team); t != nil {
			t.Towers++
		}

	case domain.EventDragon:
		if t := s.team(m, ev.Team); t != nil {
			t.Dragons++
			switch ev.Context {
			case "soul":
				t.HasDragonSoul = true
			case "elder":
				t.HasElder = true
			}
		}

	case domain.EventBaron:
		if t := s.team(m, ev.Team); t != nil {
			t.Barons++
			t.HasBaronBuff = true
		}

	case domain.EventRoshan:
		if t := s.team(m, ev.Team); t != nil {
			t.RoshanKills++
			t.HasAegis = true
		}

	case domain.EventMatchEnd:
		m.Phase = domain.PhaseFinished
		switch ev.Winner {
		case 1:
			m.Team1MapScore++
		case 2:
			m.Team2MapScore++
		}
		s.logger.Info("match finished",
			slog.String("match_id", ev.MatchID),
			slog.Int("winner", ev.Winner))

	default:
		return domain.MatchState{}, fmt.Errorf("apply: unhandled event type %q", ev.Type)
	}

	if ev.ElapsedSeconds > m.ElapsedSeconds {
		m.ElapsedSeconds = ev.ElapsedSeconds
	}
	if !ev.Timestamp.IsZero() {
		m.UpdatedAt = ev.Timestamp
	} else {
		m.UpdatedAt = time.Now()
	}
	return *m, nil
}

// Get returns the current snapshot for a match.
func (s *Store) Get(matchID string) (domain.MatchState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	if !ok {
		return domain.MatchState{}, fmt.Errorf("match %s: %w", matchID, domain.ErrUnknownMatch)
	}
	return *m, nil
}

// List returns snapshots of all tracked matches.
func (s *Store) List() []domain.MatchState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MatchState, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, *m)
	}
	return out
}

// Remove drops a match from the store, typically after retirement.
func (s *Store) Remove(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, matchID)
}

// Len returns the number of tracked matches.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

func (s *Store) team(m *domain.MatchState, n int) *domain.TeamState {
	switch n {
	case 1:
		return &m.Team1
	case 2:
		return &m.Team2
	default:
		s.logger.Warn("event with invalid team number",
			slog.String("match_id", m.MatchID), slog.Int("team", n))
		return nil
	}
}

func otherTeam(n int) int {
	if n == 1 {
		return 2
	}
	return 1
}
