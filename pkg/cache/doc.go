// Package cache implements the in-process cache tier for cost snapshots.
//
// The Store maps profile names to their most recent CostSnapshot. Validity
// is evaluated against the profile's budget policy: an entry is valid while
// it is younger than the policy's refresh interval AND it still covers the
// current calendar month. An entry from a previous month is invalid no
// matter how fresh it is (month rollover).
//
// The store is safe for concurrent use, but the system's single-writer model
// means only the orchestrator mutates it; everything else reads.
//
// The shared, object-store-backed tier lives in the team subpackage.
package cache
