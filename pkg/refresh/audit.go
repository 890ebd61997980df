package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/storage"
)

// AuditLog keeps the rolling window of AWS API call records. Every live
// fetch, successful or not, appends a record; entries older than
// costs.RequestLogWindow are pruned on each append. When a storage.Store is
// provided the log is mirrored there so the window survives restarts;
// persistence failures are logged and do not fail the refresh.
type AuditLog struct {
	mu      sync.Mutex
	records []costs.APIRequestRecord
	store   storage.Store
	clock   costs.Clock
	logger  *slog.Logger
}

// NewAuditLog builds an AuditLog. store may be nil for a purely in-memory
// log; clock may be nil to use the system clock.
func NewAuditLog(store storage.Store, clock costs.Clock) *AuditLog {
	if clock == nil {
		clock = costs.SystemClock{}
	}
	return &AuditLog{
		store:  store,
		clock:  clock,
		logger: slog.Default().With("component", "audit"),
	}
}

// Load restores persisted records within the rolling window. No-op without
// a store.
func (a *AuditLog) Load(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	since := a.clock.Now().Add(-costs.RequestLogWindow)
	records, err := a.store.LoadRequests(ctx, since)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.records = records
	a.mu.Unlock()
	return nil
}

// Record appends rec, prunes the window, and mirrors both to the store.
func (a *AuditLog) Record(ctx context.Context, rec costs.APIRequestRecord) {
	cutoff := a.clock.Now().Add(-costs.RequestLogWindow)

	a.mu.Lock()
	a.records = append(a.records, rec)
	a.records = pruneBefore(a.records, cutoff)
	a.mu.Unlock()

	if a.store == nil {
		return
	}
	if err := a.store.AppendRequest(ctx, rec); err != nil {
		a.logger.Warn("failed to persist api request record", "id", rec.ID, "error", err)
	}
	if _, err := a.store.PruneRequests(ctx, cutoff); err != nil {
		a.logger.Warn("failed to prune api request records", "error", err)
	}
}

// Records returns a copy of the in-window records for profileName. An empty
// profileName returns all records.
func (a *AuditLog) Records(profileName string) []costs.APIRequestRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]costs.APIRequestRecord, 0, len(a.records))
	for _, r := range a.records {
		if profileName == "" || r.ProfileName == profileName {
			out = append(out, r)
		}
	}
	return out
}

// LastSuccess returns the timestamp of the most recent successful call for
// profileName.
func (a *AuditLog) LastSuccess(profileName string) (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var best time.Time
	found := false
	for _, r := range a.records {
		if r.ProfileName != profileName || !r.Success {
			continue
		}
		if r.Timestamp.After(best) {
			best = r.Timestamp
			found = true
		}
	}
	return best, found
}

func pruneBefore(records []costs.APIRequestRecord, cutoff time.Time) []costs.APIRequestRecord {
	kept := records[:0]
	for _, r := range records {
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	return kept
}
