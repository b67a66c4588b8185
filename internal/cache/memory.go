// internal/cache/memory.go
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when redis is disabled and in
// tests. Entries are copied on read so callers can't mutate stored state.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// WithClock overrides the timestamp source. Tests only.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	cp := entry
	cp.Payload = append([]byte(nil), entry.Payload...)
	return &cp, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = Entry{
		Key:       key,
		Timestamp: s.now().UTC(),
		Payload:   append([]byte(nil), payload...),
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

// SetTimestamp rewrites an entry's timestamp in place. Tests only.
func (s *MemoryStore) SetTimestamp(key string, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok {
		entry.Timestamp = ts
		s.entries[key] = entry
	}
}

var _ Store = (*MemoryStore)(nil)
