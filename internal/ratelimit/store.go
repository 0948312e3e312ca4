package ratelimit

import (
	"sync"
	"time"
)

// MemoryStore is the in-process Store implementation. It is the default for
// tests and for deployments that accept losing window state on restart.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string][]time.Time)}
}

// Window returns a copy of the recorded timestamps for key.
func (s *MemoryStore) Window(key string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamps := s.windows[key]
	out := make([]time.Time, len(stamps))
	copy(out, stamps)
	return out, nil
}

// SetWindow replaces the recorded timestamps for key. Empty windows are
// dropped so the map stays bounded by pruning.
func (s *MemoryStore) SetWindow(key string, stamps []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(stamps) == 0 {
		delete(s.windows, key)
		return nil
	}
	out := make([]time.Time, len(stamps))
	copy(out, stamps)
	s.windows[key] = out
	return nil
}
