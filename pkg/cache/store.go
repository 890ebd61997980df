package cache

import (
	"sync"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
)

// Store is the process-local cache of profile -> cost snapshot.
type Store struct {
	mu      sync.RWMutex
	entries map[string]costs.CostSnapshot
	clock   costs.Clock
}

// NewStore creates an empty local cache store.
func NewStore(clock costs.Clock) *Store {
	if clock == nil {
		clock = costs.SystemClock{}
	}
	return &Store{
		entries: make(map[string]costs.CostSnapshot),
		clock:   clock,
	}
}

// Get returns the cached snapshot for a profile, if any.
func (s *Store) Get(profileName string) (costs.CostSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.entries[profileName]
	return snap, ok
}

// Put stores a snapshot, replacing any previous entry wholesale.
// A snapshot older than the current entry is ignored so FetchDate stays
// monotonically non-decreasing per profile (a slow worker must not clobber
// a fresher result).
func (s *Store) Put(snap costs.CostSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.entries[snap.ProfileName]; ok && snap.FetchDate.Before(prev.FetchDate) {
		return
	}
	s.entries[snap.ProfileName] = snap
}

// Delete removes a profile's entry.
func (s *Store) Delete(profileName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, profileName)
}

// IsValid reports whether snap may be served under policy:
// it must be younger than the policy's refresh interval and must cover the
// current calendar month.
func (s *Store) IsValid(snap costs.CostSnapshot, policy costs.BudgetPolicy) bool {
	now := s.clock.Now()
	if !snap.CoversMonth(now) {
		return false
	}
	return now.Sub(snap.FetchDate) < policy.RefreshInterval
}

// GetValid combines Get and IsValid.
func (s *Store) GetValid(profileName string, policy costs.BudgetPolicy) (costs.CostSnapshot, bool) {
	snap, ok := s.Get(profileName)
	if !ok || !s.IsValid(snap, policy) {
		return costs.CostSnapshot{}, false
	}
	return snap, true
}

// Snapshot returns a copy of all entries, for the persistence mirror.
func (s *Store) Snapshot() map[string]costs.CostSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]costs.CostSnapshot, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Restore loads entries saved by a previous run. Existing entries win on
// conflict; Restore is meant to be called once at startup before the
// scheduler starts.
func (s *Store) Restore(entries map[string]costs.CostSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		if _, ok := s.entries[k]; !ok {
			s.entries[k] = v
		}
	}
}
