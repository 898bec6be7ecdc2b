package dispatch

import (
	"sync"
	"time"
)

// Dedup suppresses decisions that have already been handled within a TTL
// window. Safe for concurrent use.
type Dedup struct {
	seen map[string]time.Time
	ttl  time.Duration
	mu   sync.Mutex
}

// NewDedup creates a Dedup that treats an ID as a duplicate when it was seen
// within ttl.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// IsDuplicate reports whether the ID was seen within the TTL window. Unseen
// or expired IDs are recorded and reported as fresh.
func (d *Dedup) IsDuplicate(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if lastSeen, ok := d.seen[id]; ok {
		if now.Sub(lastSeen) < d.ttl {
			return true
		}
	}

	d.seen[id] = now
	return false
}

// Cleanup removes expired entries. Call periodically to bound memory.
func (d *Dedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for id, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, id)
		}
	}
}
