// Package dedupe tracks composite keys so that only the first occurrence of a
// key is kept.
package dedupe

import (
	"context"
	"strings"
	"sync"
)

// keySep joins key parts; it cannot appear in names read from text files.
const keySep = "\x1f"

// Key joins parts into a single composite key.
func Key(parts ...string) string {
	return strings.Join(parts, keySep)
}

// Deduper records keys and reports whether they were seen before.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it
	// when it was not.
	SeenAndRecord(ctx context.Context, id string) bool
}

// inMemoryDeduper keeps every key for its lifetime.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewInMemoryDeduper returns an empty, unbounded deduper.
func NewInMemoryDeduper() Deduper {
	return &inMemoryDeduper{seen: make(map[string]struct{})}
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}
