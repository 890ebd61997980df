package team

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
)

// SchemaVersion is the current RemoteCacheEntry wire format version.
// Bump it when the JSON shape changes incompatibly; readers treat a version
// they cannot decode as a serialization error (a miss), never as data.
const SchemaVersion = 1

// CacheMetadata describes who wrote an entry and how long it lives.
type CacheMetadata struct {
	// CreatedBy tags the writing process (user@host plus a UUID suffix).
	CreatedBy string `json:"created_by"`

	// CreatedAt is when the entry was written.
	CreatedAt time.Time `json:"created_at"`

	// TTLSeconds is the entry's lifetime from CreatedAt.
	TTLSeconds int64 `json:"ttl_seconds"`

	// Key is the object key the entry was written under.
	Key string `json:"key"`
}

// RemoteCacheEntry is the shared-tier superset of a CostSnapshot.
// Entries are overwritten wholesale; there is no field-level merge.
type RemoteCacheEntry struct {
	// SchemaVersion is the wire format version (see SchemaVersion).
	SchemaVersion int `json:"schema_version"`

	// AccountID is the resolved billing account the data belongs to.
	AccountID string `json:"account_id"`

	// ProfileName is the writer's profile name. Informational only: readers
	// may use a different local profile name for the same account.
	ProfileName string `json:"profile_name"`

	// FetchDate is when the underlying data was fetched from the API.
	FetchDate time.Time `json:"fetch_date"`

	// MTDTotal is the month-to-date total spend.
	MTDTotal decimal.Decimal `json:"mtd_total"`

	// Currency is the ISO 4217 currency code.
	Currency string `json:"currency"`

	// DailyCosts holds per-day totals, ordered by date.
	DailyCosts []costs.DailyCost `json:"daily_costs"`

	// ServiceCosts holds per-service totals, ordered by descending amount.
	ServiceCosts []costs.ServiceCost `json:"service_costs"`

	// Range is the covered date range [Start, End).
	Range costs.DateRange `json:"range"`

	// Metadata carries creator, creation time, TTL, and the derived key.
	Metadata CacheMetadata `json:"metadata"`
}

// ExpiresAt returns the instant the entry's TTL runs out.
func (e *RemoteCacheEntry) ExpiresAt() time.Time {
	return e.Metadata.CreatedAt.Add(time.Duration(e.Metadata.TTLSeconds) * time.Second)
}

// Snapshot converts the entry into a local cache snapshot for the reading
// profile.
func (e *RemoteCacheEntry) Snapshot(profileName string) costs.CostSnapshot {
	return costs.CostSnapshot{
		ProfileName:  profileName,
		FetchDate:    e.FetchDate,
		MTDTotal:     e.MTDTotal,
		Currency:     e.Currency,
		DailyCosts:   e.DailyCosts,
		ServiceCosts: e.ServiceCosts,
		Range:        e.Range,
	}
}

// EntryFromSnapshot builds the remote entry written back after a successful
// live fetch.
func EntryFromSnapshot(snap costs.CostSnapshot, accountID, createdBy, key string, ttl time.Duration, now time.Time) *RemoteCacheEntry {
	return &RemoteCacheEntry{
		SchemaVersion: SchemaVersion,
		AccountID:     accountID,
		ProfileName:   snap.ProfileName,
		FetchDate:     snap.FetchDate,
		MTDTotal:      snap.MTDTotal,
		Currency:      snap.Currency,
		DailyCosts:    snap.DailyCosts,
		ServiceCosts:  snap.ServiceCosts,
		Range:         snap.Range,
		Metadata: CacheMetadata{
			CreatedBy:  createdBy,
			CreatedAt:  now,
			TTLSeconds: int64(ttl / time.Second),
			Key:        key,
		},
	}
}
