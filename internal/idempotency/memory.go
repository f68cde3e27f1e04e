package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	id      int64 // 0 while pending
	expires time.Time
}

// MemoryStore keeps keys in a map. It is the default for a single server
// process; keys are lost on restart.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	pendingTTL time.Duration
	now        func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore remembers completed keys for ttl and pending ones for the
// pending TTL (see WithPendingTTL).
func NewMemoryStore(ttl time.Duration, opts ...Option) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		pendingTTL: newSettings(opts).pendingTTL,
		now:        time.Now,
	}
}

func (s *MemoryStore) Reserve(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		if e.id == 0 {
			return 0, ErrInFlight
		}
		return e.id, nil
	}

	s.sweep(now)
	s.entries[key] = memoryEntry{expires: now.Add(s.pendingTTL)}
	return 0, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{id: id, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && e.id == 0 {
		delete(s.entries, key)
	}
	return nil
}

// sweep drops expired entries. Callers hold s.mu.
func (s *MemoryStore) sweep(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
}
