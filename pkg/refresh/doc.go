// Package refresh implements the fetch orchestration policy.
//
// # Tier order
//
// A refresh consults, in order, short-circuiting on the first usable hit
// unless forced:
//
//  1. Team cache (object store), re-validated against the caller's own
//     budget policy: a remote entry may be stale relative to a stricter
//     local policy.
//  2. Local cache.
//  3. Live fetch, gated by the circuit breaker and the rate limiter.
//
// A successful live fetch fans out: local cache, best-effort team cache
// write-back, persistence mirror, anomaly detection, and an APIRequestRecord.
//
// # Ownership
//
// Shared mutable state (rate limiter's last-call time, in-flight flags,
// selection generation) is guarded by one mutex owned by the Orchestrator;
// blocking work (object store I/O, the live fetch) never runs under it.
// Per profile, at most one refresh is in flight; concurrent callers are
// absorbed silently. A fetch completing after the selected profile changed
// is discarded.
//
// # Errors
//
// Failures surface through the closed RefreshError taxonomy so callers can
// distinguish "offer a force override" (rate limited, breaker open) from
// hard upstream failures. Team cache failures never surface here: reads
// fall through, write-backs are logged and swallowed.
package refresh
