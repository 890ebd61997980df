package storage

import (
	"context"
	"time"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
)

// Store is the persistence collaborator. All methods are safe for
// concurrent use.
type Store interface {
	// SavePolicy upserts a profile's budget policy.
	SavePolicy(ctx context.Context, policy costs.BudgetPolicy) error

	// LoadPolicies returns all persisted policies keyed by profile name.
	LoadPolicies(ctx context.Context) (map[string]costs.BudgetPolicy, error)

	// SaveSnapshot upserts the cache mirror entry for a profile.
	SaveSnapshot(ctx context.Context, snap costs.CostSnapshot) error

	// LoadSnapshots returns the mirrored cache entries keyed by profile name.
	LoadSnapshots(ctx context.Context) (map[string]costs.CostSnapshot, error)

	// AppendRequest adds one record to the API request log.
	AppendRequest(ctx context.Context, record costs.APIRequestRecord) error

	// LoadRequests returns log records at or after since, oldest first.
	LoadRequests(ctx context.Context, since time.Time) ([]costs.APIRequestRecord, error)

	// PruneRequests deletes log records older than before, returning the
	// number removed.
	PruneRequests(ctx context.Context, before time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
