package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
}

// DecisionStore persists the decision audit trail.
type DecisionStore interface {
	Insert(ctx context.Context, d Decision) error
	GetByID(ctx context.Context, id string) (Decision, error)
	ListRecent(ctx context.Context, limit int) ([]Decision, error)
	ListByMatch(ctx context.Context, matchID string, opts ListOpts) ([]Decision, error)
	CountByStatus(ctx context.Context, status DecisionStatus, since time.Time) (int64, error)
}

// MatchArchiveStore persists summaries of retired matches.
type MatchArchiveStore interface {
	Upsert(ctx context.Context, s MatchSummary) error
	GetByID(ctx context.Context, matchID string) (MatchSummary, error)
	ListRecent(ctx context.Context, limit int) ([]MatchSummary, error)
}

// BlobWriter stores an object under a key in blob storage.
type BlobWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Archiver exports a retired match's decision history to blob storage.
type Archiver interface {
	ArchiveMatch(ctx context.Context, summary MatchSummary) (key string, err error)
}
