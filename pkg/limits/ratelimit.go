package limits

import (
	"math"
	"time"
)

// DefaultMinCallSpacing is the minimum time between live billing API calls.
const DefaultMinCallSpacing = 60 * time.Second

// RateLimiter enforces a minimum spacing between live API calls. It holds
// no mutable state: the last call time lives with its single-writer owner
// and is passed in on every check.
type RateLimiter struct {
	spacing time.Duration
}

// NewRateLimiter creates a limiter with the given spacing. A non-positive
// spacing falls back to DefaultMinCallSpacing.
func NewRateLimiter(spacing time.Duration) *RateLimiter {
	if spacing <= 0 {
		spacing = DefaultMinCallSpacing
	}
	return &RateLimiter{spacing: spacing}
}

// Spacing returns the configured minimum spacing.
func (r *RateLimiter) Spacing() time.Duration { return r.spacing }

// CanCall reports whether a call is allowed at now, given the time of the
// last call. The boundary is inclusive: exactly `spacing` elapsed allows the
// call. A zero lastCall means no prior call was ever made.
func (r *RateLimiter) CanCall(lastCall, now time.Time) bool {
	if lastCall.IsZero() {
		return true
	}
	return now.Sub(lastCall) >= r.spacing
}

// SecondsUntilAllowed returns how many whole seconds remain until a call is
// allowed, ceiling-rounded. Zero means the call is allowed now.
func (r *RateLimiter) SecondsUntilAllowed(lastCall, now time.Time) int {
	if r.CanCall(lastCall, now) {
		return 0
	}
	remaining := r.spacing - now.Sub(lastCall)
	return int(math.Ceil(remaining.Seconds()))
}
