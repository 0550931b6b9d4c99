package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowEntry struct {
	mu          sync.Mutex
	count       int64
	windowStart time.Time
	window      time.Duration
	evicted     bool
}

// MemoryStore keeps counters in process memory. Each key has its own lock so
// unrelated clients never contend with each other.
type MemoryStore struct {
	entries sync.Map // map[string]*windowEntry
	now     func() time.Time
}

// NewMemoryStore creates an in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Increment implements Store.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	for {
		now := s.now()
		value, _ := s.entries.LoadOrStore(key, &windowEntry{windowStart: now, window: window})
		entry := value.(*windowEntry)

		entry.mu.Lock()
		if entry.evicted {
			// Lost a race with Sweep; the entry is gone from the map.
			entry.mu.Unlock()
			continue
		}
		if now.Sub(entry.windowStart) >= window {
			entry.count = 0
			entry.windowStart = now
		}
		entry.window = window
		entry.count++
		count, start := entry.count, entry.windowStart
		entry.mu.Unlock()
		return count, start, nil
	}
}

// Sweep drops entries whose window has elapsed and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	removed := 0
	s.entries.Range(func(key, value any) bool {
		entry := value.(*windowEntry)
		entry.mu.Lock()
		if now.Sub(entry.windowStart) >= entry.window {
			entry.evicted = true
			s.entries.Delete(key)
			removed++
		}
		entry.mu.Unlock()
		return true
	})
	return removed
}

// Len reports the number of tracked keys.
func (s *MemoryStore) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Run sweeps expired windows every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}
