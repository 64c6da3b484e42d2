package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Montcharles/germitrack/pkg/types"
)

// Entry is a treatment result together with the time it was last stored.
type Entry struct {
	Result    *types.TreatmentResult
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory result store, keyed by treatment name.
// With a positive TTL, a background goroutine (Run) periodically evicts
// entries that have not been refreshed; TTL <= 0 keeps entries forever,
// which suits deployments where results only change when an input file does.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL. TTL <= 0 disables eviction.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores or replaces the result for res.Treatment.
// Callers must not modify res after calling Put.
func (s *Store) Put(res *types.TreatmentResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[res.Treatment] = &Entry{
		Result:    res,
		UpdatedAt: s.now(),
	}
}

// Get returns the Entry for the given treatment and a boolean indicating
// whether an entry was found. The entry may be stale if TTL has elapsed.
func (s *Store) Get(treatment string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[treatment]
	return e, ok
}

// List returns all live entries sorted by treatment name. With a positive
// TTL, stale entries that have not yet been evicted are excluded.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.data))
	if s.ttl > 0 {
		cutoff := s.now().Add(-s.ttl)
		for _, e := range s.data {
			if e.UpdatedAt.After(cutoff) {
				out = append(out, e)
			}
		}
	} else {
		for _, e := range s.data {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Result.Treatment < out[j].Result.Treatment
	})
	return out
}

// TTL returns the eviction window. Zero or negative means entries never expire.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed. With TTL <= 0 it removes nothing.
func (s *Store) Evict(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for name, e := range s.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(s.data, name)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second) so entries are evicted promptly, and blocks
// until ctx is cancelled. With TTL <= 0 it only waits for cancellation.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		<-ctx.Done()
		return
	}

	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale treatments", "count", n)
			}
		}
	}
}
