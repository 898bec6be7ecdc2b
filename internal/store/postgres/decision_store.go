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

// DecisionStore implements domain.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *pgxpool.Pool
}

// NewDecisionStore creates a DecisionStore backed by the given pool.
func NewDecisionStore(pool *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

const decisionSelectCols = `id, match_id, outcome, side, stake, stake_fraction,
	edge, confidence, status, reject_reason, rationale, created_at`

func scanDecisionRows(rows pgx.Rows) ([]domain.Decision, error) {
	var out []domain.Decision
	for rows.Next() {
		var d domain.Decision
		if err := rows.Scan(
			&d.ID, &d.MatchID, &d.Outcome, &d.Side, &d.Stake, &d.StakeFraction,
			&d.Edge, &d.Confidence, &d.Status, &d.RejectReason, &d.Rationale, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Insert persists one decision. Re-inserting the same ID is a no-op so the
// dispatcher can retry safely.
func (s *DecisionStore) Insert(ctx context.Context, d domain.Decision) error {
	const query = `
		INSERT INTO decisions (
			id, match_id, outcome, side, stake, stake_fraction,
			edge, confidence, status, reject_reason, rationale, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12
		) ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		d.ID, d.MatchID, d.Outcome, d.Side, d.Stake, d.StakeFraction,
		d.Edge, d.Confidence, d.Status, d.RejectReason, d.Rationale, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert decision %s: %w", d.ID, err)
	}
	return nil
}

// GetByID returns a decision, or domain.ErrNotFound.
func (s *DecisionStore) GetByID(ctx context.Context, id string) (domain.Decision, error) {
	query := `SELECT ` + decisionSelectCols + ` FROM decisions WHERE id = $1`

	var d domain.Decision
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.MatchID, &d.Outcome, &d.Side, &d.Stake, &d.StakeFraction,
		&d.Edge, &d.Confidence, &d.Status, &d.RejectReason, &d.Rationale, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Decision{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Decision{}, fmt.Errorf("postgres: get decision %s: %w", id, err)
	}
	return d, nil
}

// ListRecent returns the newest decisions across all matches.
func (s *DecisionStore) ListRecent(ctx context.Context, limit int) ([]domain.Decision, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + decisionSelectCols + ` FROM decisions ORDER BY created_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent decisions: %w", err)
	}
	defer rows.Close()

	out, err := scanDecisionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent decisions: %w", err)
	}
	return out, nil
}

// ListByMatch returns decisions for one match with pagination and optional
// time filtering.
func (s *DecisionStore) ListByMatch(ctx context.Context, matchID string, opts domain.ListOpts) ([]domain.Decision, error) {
	query := `SELECT ` + decisionSelectCols + ` FROM decisions WHERE match_id = $1`
	args := []any{matchID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list decisions by match: %w", err)
	}
	defer rows.Close()

	out, err := scanDecisionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan decisions by match: %w", err)
	}
	return out, nil
}

// CountByStatus counts decisions with the given status created at or after
// since.
func (s *DecisionStore) CountByStatus(ctx context.Context, status domain.DecisionStatus, since time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM decisions WHERE status = $1 AND created_at >= $2",
		status, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count decisions by status: %w", err)
	}
	return n, nil
}

// Compile-time interface check.
var _ domain.DecisionStore = (*DecisionStore)(nil)
