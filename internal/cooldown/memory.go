package cooldown

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore keeps cooldown records in process memory. Records are lost on
// restart. Concurrent access to one key is serialized by the map's per-bucket
// locking; different keys never contend on a global lock.
type MemoryStore struct {
	records *xsync.MapOf[Key, time.Time]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: xsync.NewMapOf[Key, time.Time]()}
}

// Escalate implements Store.
func (s *MemoryStore) Escalate(_ context.Context, key Key, now time.Time, window time.Duration) (Decision, error) {
	var decision Decision
	s.records.Compute(key, func(last time.Time, loaded bool) (time.Time, bool) {
		var keep bool
		decision, keep = decide(last, loaded, now, window)
		if !keep {
			return last, true
		}
		return now, false
	})
	return decision, nil
}

// LastWarning implements Store.
func (s *MemoryStore) LastWarning(_ context.Context, key Key) (time.Time, bool, error) {
	last, ok := s.records.Load(key)
	return last, ok, nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, key Key) error {
	s.records.Delete(key)
	return nil
}

// Len returns the number of records held, expired ones included.
func (s *MemoryStore) Len() int {
	return s.records.Size()
}

// Sweep removes records whose warning is older than window as of now and
// returns how many were removed. Expired records already behave as absent;
// sweeping only reclaims memory.
func (s *MemoryStore) Sweep(now time.Time, window time.Duration) int {
	removed := 0
	s.records.Range(func(key Key, _ time.Time) bool {
		s.records.Compute(key, func(last time.Time, loaded bool) (time.Time, bool) {
			if loaded && now.After(last.Add(window)) {
				removed++
				return last, true
			}
			return last, !loaded
		})
		return true
	})
	return removed
}
