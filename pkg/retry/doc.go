// Package retry provides the bounded-retry-with-backoff wrapper used by all
// remote cache operations.
//
// The Executor runs an operation up to MaxRetries additional times after the
// first attempt, sleeping an exponentially growing delay between attempts:
//
//	delay = min(BaseDelay * Multiplier^attempt, MaxDelay)
//
// Sleeping happens on the calling goroutine only; concurrent operations are
// not blocked. Errors wrapped with Permanent propagate immediately without
// further attempts. When all attempts are exhausted the last observed error
// is returned.
//
// The backoff engine is github.com/cenkalti/backoff/v5 with randomization
// disabled so delays are the exact exponential series.
package retry
