package dispatch

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/colehagen/esportsbot/internal/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	inserted []domain.Decision
}

func (f *fakeStore) Insert(_ context.Context, d domain.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, d)
	return nil
}

func (f *fakeStore) GetByID(context.Context, string) (domain.Decision, error) {
	return domain.Decision{}, domain.ErrNotFound
}
func (f *fakeStore) ListRecent(context.Context, int) ([]domain.Decision, error) { return nil, nil }
func (f *fakeStore) ListByMatch(context.Context, string, domain.ListOpts) ([]domain.Decision, error) {
	return nil, nil
}
func (f *fakeStore) CountByStatus(context.Context, domain.DecisionStatus, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

type fakeBus struct {
	mu       sync.Mutex
	appended [][]byte
}

func (f *fakeBus) Publish(context.Context, string, []byte) error { return nil }
func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}
func (f *fakeBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, payload)
	return nil
}
func (f *fakeBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func (f *fakeBus) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

func TestDispatcherPersistsAndPublishes(t *testing.T) {
	ch := make(chan domain.Decision, 4)
	store := &fakeStore{}
	bus := &fakeBus{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	d := NewDispatcher(ch, store, bus, "decisions", nil, logger)

	ch <- domain.Decision{ID: "d1", MatchID: "m1", Status: domain.DecisionApproved}
	ch <- domain.Decision{ID: "d2", MatchID: "m1", Status: domain.DecisionRejected, RejectReason: domain.RejectCooldown}
	ch <- domain.Decision{ID: "d1", MatchID: "m1", Status: domain.DecisionApproved} // duplicate
	close(ch)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.count() != 2 {
		t.Errorf("persisted = %d, want 2 (duplicate dropped)", store.count())
	}
	// Only the approved decision reaches the stream.
	if bus.count() != 1 {
		t.Errorf("stream appends = %d, want 1", bus.count())
	}
}

func TestDedupTTL(t *testing.T) {
	d := NewDedup(10 * time.Millisecond)

	if d.IsDuplicate("a") {
		t.Fatal("first sighting must not be a duplicate")
	}
	if !d.IsDuplicate("a") {
		t.Fatal("second sighting within TTL must be a duplicate")
	}
	time.Sleep(15 * time.Millisecond)
	if d.IsDuplicate("a") {
		t.Fatal("sighting after TTL expiry must be fresh")
	}
}
