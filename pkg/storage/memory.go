package storage

import (
	"context"
	"sync"
	"time"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
)

// MemoryStore implements Store with in-process maps. Nothing survives a
// restart; it exists for tests and for running without a data directory.
type MemoryStore struct {
	mu        sync.RWMutex
	policies  map[string]costs.BudgetPolicy
	snapshots map[string]costs.CostSnapshot
	requests  []costs.APIRequestRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies:  make(map[string]costs.BudgetPolicy),
		snapshots: make(map[string]costs.CostSnapshot),
	}
}

// SavePolicy upserts a policy.
func (m *MemoryStore) SavePolicy(_ context.Context, policy costs.BudgetPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[policy.ProfileName] = policy
	return nil
}

// LoadPolicies returns a copy of all policies.
func (m *MemoryStore) LoadPolicies(context.Context) (map[string]costs.BudgetPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]costs.BudgetPolicy, len(m.policies))
	for k, v := range m.policies {
		out[k] = v
	}
	return out, nil
}

// SaveSnapshot upserts a cache mirror entry.
func (m *MemoryStore) SaveSnapshot(_ context.Context, snap costs.CostSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.ProfileName] = snap
	return nil
}

// LoadSnapshots returns a copy of the cache mirror.
func (m *MemoryStore) LoadSnapshots(context.Context) (map[string]costs.CostSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]costs.CostSnapshot, len(m.snapshots))
	for k, v := range m.snapshots {
		out[k] = v
	}
	return out, nil
}

// AppendRequest adds a record to the log.
func (m *MemoryStore) AppendRequest(_ context.Context, record costs.APIRequestRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, record)
	return nil
}

// LoadRequests returns records at or after since, oldest first.
func (m *MemoryStore) LoadRequests(_ context.Context, since time.Time) ([]costs.APIRequestRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []costs.APIRequestRecord
	for _, r := range m.requests {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

// PruneRequests drops records older than before.
func (m *MemoryStore) PruneRequests(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.requests[:0]
	pruned := 0
	for _, r := range m.requests {
		if r.Timestamp.Before(before) {
			pruned++
			continue
		}
		kept = append(kept, r)
	}
	m.requests = kept
	return pruned, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
