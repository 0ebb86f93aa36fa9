package conversation

import (
	"context"
	"sync"
)

// Store keeps the full per-user transcript. History returns entries oldest
// first; Append adds one entry to the end. Histories are never truncated for
// the lifetime of the process.
type Store interface {
	History(ctx context.Context, userKey string) ([]Entry, error)
	Append(ctx context.Context, userKey string, entry Entry) error
}

// MemoryStore is the default in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[string][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUser: make(map[string][]Entry)}
}

func (s *MemoryStore) History(_ context.Context, userKey string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.byUser[userKey]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, userKey string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userKey] = append(s.byUser[userKey], entry)
	return nil
}
