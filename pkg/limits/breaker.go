package limits

import (
	"sync"
)

// DefaultMaxConsecutiveFailures is the failure count that trips the breaker.
const DefaultMaxConsecutiveFailures = 3

// BreakerState is the circuit breaker's current state.
type BreakerState string

const (
	// BreakerClosed means calls flow normally.
	BreakerClosed BreakerState = "closed"

	// BreakerOpen means calls are refused until a forced call succeeds.
	BreakerOpen BreakerState = "open"
)

// CircuitBreaker trips after N consecutive upstream failures. While open,
// calls are refused unless the caller passes force, which lets exactly that
// call through; a success on any call (forced or not) closes the breaker and
// zeroes the counter.
type CircuitBreaker struct {
	mu          sync.Mutex
	maxFailures int
	failures    int
	open        bool
}

// NewCircuitBreaker creates a breaker tripping at maxFailures consecutive
// failures. A non-positive value falls back to the default.
func NewCircuitBreaker(maxFailures int) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxConsecutiveFailures
	}
	return &CircuitBreaker{maxFailures: maxFailures}
}

// Allow reports whether a call may proceed. force bypasses an open breaker
// for this one call.
func (b *CircuitBreaker) Allow(force bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.open || force
}

// RecordSuccess resets the breaker: counter to zero, state to closed.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

// RecordFailure increments the consecutive-failure counter and re-evaluates
// the trip condition. Returns true if this failure tripped the breaker open.
func (b *CircuitBreaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.maxFailures && !b.open {
		b.open = true
		return true
	}
	return false
}

// State returns the current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return BreakerOpen
	}
	return BreakerClosed
}

// Failures returns the current consecutive-failure count.
func (b *CircuitBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
