package s3blob

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/colehagen/esportsbot/internal/domain"
)

// DecisionHistoryStore is the narrow read interface the archiver needs: just
// the decision history of one match.
type DecisionHistoryStore interface {
	ListByMatch(ctx context.Context, matchID string, opts domain.ListOpts) ([]domain.Decision, error)
}

// matchArchive is the JSON document uploaded per retired match.
type matchArchive struct {
	Summary   domain.MatchSummary `json:"summary"`
	Decisions []domain.Decision   `json:"decisions"`
}

// Archiver implements domain.Archiver by bundling a retired match's summary
// with its full decision history and uploading the document to blob storage.
//
// Rows are not deleted from the primary store here; retention is a separate,
// explicit step run after archives are verified.
type Archiver struct {
	writer    domain.BlobWriter
	decisions DecisionHistoryStore
}

// NewArchiver creates an Archiver writing through the given blob writer.
func NewArchiver(writer domain.BlobWriter, decisions DecisionHistoryStore) *Archiver {
	return &Archiver{writer: writer, decisions: decisions}
}

// ArchiveMatch uploads the match document and returns the object key.
func (a *Archiver) ArchiveMatch(ctx context.Context, summary domain.MatchSummary) (string, error) {
	history, err := a.decisions.ListByMatch(ctx, summary.MatchID, domain.ListOpts{})
	if err != nil {
		return "", fmt.Errorf("s3blob: archive match %s query: %w", summary.MatchID, err)
	}

	doc, err := json.Marshal(matchArchive{
		Summary:   summary,
		Decisions: history,
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: archive match %s marshal: %w", summary.MatchID, err)
	}

	key := archiveKey(summary)
	if err := a.writer.Put(ctx, key, doc, "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive match %s upload: %w", summary.MatchID, err)
	}
	return key, nil
}

// archiveKey builds the object key, partitioned by retirement year-month:
//
//	archive/matches/2026-08/lol-12345.json
func archiveKey(summary domain.MatchSummary) string {
	return fmt.Sprintf("archive/matches/%s/%s.json",
		summary.RetiredAt.Format("2006-01"), summary.MatchID)
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
