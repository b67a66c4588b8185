// internal/cache/store.go
package cache

import (
	"context"
	"time"
)

// Entry is one cached payload with its write timestamp. The store never
// expires entries on its own; staleness is always the reader's TTL check.
type Entry struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	Payload   []byte    `json:"payload"`
}

// Store is a keyed snapshot store with upsert-on-write semantics.
type Store interface {
	// Get returns the entry for key; the bool reports a hit.
	Get(ctx context.Context, key string) (*Entry, bool, error)

	// Put creates or overwrites the entry for key.
	Put(ctx context.Context, key string, payload []byte) error

	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Fresh reports whether an entry is within its TTL at the given instant.
func Fresh(e *Entry, ttl time.Duration, now time.Time) bool {
	if e == nil {
		return false
	}
	return now.Sub(e.Timestamp) <= ttl
}
