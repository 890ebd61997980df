// Package limits guards the metered billing API.
//
// Two guards sit in front of every live fetch:
//
//   - RateLimiter: a single-slot limiter enforcing a minimum spacing
//     between calls. This is deliberately not a token bucket: the upstream
//     is called by at most one scheduler per profile, so "one call per
//     rolling window per process" is the whole requirement.
//
//   - CircuitBreaker: trips open after N consecutive failures and refuses
//     further calls until a caller explicitly forces one through and it
//     succeeds.
//
// The limiter is a pure function of the last call time, which the
// orchestrator owns (single-writer model). The breaker guards its counters
// with a mutex because status queries may come from other goroutines.
package limits
