package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colehagen/esportsbot/internal/domain"
)

// MatchArchiveStore implements domain.MatchArchiveStore using PostgreSQL.
type MatchArchiveStore struct {
	pool *pgxpool.Pool
}

// NewMatchArchiveStore creates a MatchArchiveStore backed by the given pool.
func NewMatchArchiveStore(pool *pgxpool.Pool) *MatchArchiveStore {
	return &MatchArchiveStore{pool: pool}
}

const matchSelectCols = `match_id, game, phase, winner, final_team1_prob,
	decisions, started_at, retired_at`

// Upsert writes a match summary, replacing any earlier record for the match.
func (s *MatchArchiveStore) Upsert(ctx context.Context, m domain.MatchSummary) error {
	const query = `
		INSERT INTO match_archive (
			match_id, game, phase, winner, final_team1_prob,
			decisions, started_at, retired_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id) DO UPDATE SET
			game = EXCLUDED.game,
			phase = EXCLUDED.phase,
			winner = EXCLUDED.winner,
			final_team1_prob = EXCLUDED.final_team1_prob,
			decisions = EXCLUDED.decisions,
			started_at = EXCLUDED.started_at,
			retired_at = EXCLUDED.retired_at`

	_, err := s.pool.Exec(ctx, query,
		m.MatchID, m.Game, m.Phase, m.Winner, m.FinalTeam1Prob,
		m.Decisions, nullableTime(m.StartedAt), m.RetiredAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert match %s: %w", m.MatchID, err)
	}
	return nil
}

// GetByID returns one archived match, or domain.ErrNotFound.
func (s *MatchArchiveStore) GetByID(ctx context.Context, matchID string) (domain.MatchSummary, error) {
	query := `SELECT ` + matchSelectCols + ` FROM match_archive WHERE match_id = $1`

	m, err := scanMatchRow(s.pool.QueryRow(ctx, query, matchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MatchSummary{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.MatchSummary{}, fmt.Errorf("postgres: get match %s: %w", matchID, err)
	}
	return m, nil
}

// ListRecent returns the most recently retired matches.
func (s *MatchArchiveStore) ListRecent(ctx context.Context, limit int) ([]domain.MatchSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + matchSelectCols + ` FROM match_archive ORDER BY retired_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent matches: %w", err)
	}
	defer rows.Close()

	var out []domain.MatchSummary
	for rows.Next() {
		m, err := scanMatchRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan match row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMatchRow(row pgx.Row) (domain.MatchSummary, error) {
	var (
		m         domain.MatchSummary
		startedAt *time.Time
	)
	if err := row.Scan(
		&m.MatchID, &m.Game, &m.Phase, &m.Winner, &m.FinalTeam1Prob,
		&m.Decisions, &startedAt, &m.RetiredAt,
	); err != nil {
		return domain.MatchSummary{}, err
	}
	if startedAt != nil {
		m.StartedAt = *startedAt
	}
	return m, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Compile-time interface check.
var _ domain.MatchArchiveStore = (*MatchArchiveStore)(nil)
