package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy configures retry behavior.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential delay growth.
	MaxDelay time.Duration

	// Multiplier is the factor applied to the delay after each attempt.
	Multiplier float64
}

// DefaultPolicy returns the standard policy: 3 retries, 1s base delay
// doubling up to a 30s cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
	}
}

// Executor runs operations under a retry policy.
type Executor struct {
	policy Policy
	logger *slog.Logger
}

// NewExecutor creates an executor with the given policy. Zero-valued policy
// fields fall back to the defaults.
func NewExecutor(policy Policy) *Executor {
	def := DefaultPolicy()
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = def.MaxRetries
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = def.BaseDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = def.MaxDelay
	}
	if policy.Multiplier <= 1 {
		policy.Multiplier = def.Multiplier
	}
	return &Executor{
		policy: policy,
		logger: slog.Default().With("component", "retry.executor"),
	}
}

// Policy returns the executor's effective policy.
func (e *Executor) Policy() Policy { return e.policy }

// Execute runs op until it succeeds, returns a permanent error, the context
// is cancelled, or all attempts are exhausted.
func (e *Executor) Execute(ctx context.Context, label string, op func() error) error {
	_, err := Do(ctx, e, label, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// Do is the generic form of Execute for operations that return a value.
func Do[T any](ctx context.Context, e *Executor, label string, op func() (T, error)) (T, error) {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     e.policy.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          e.policy.Multiplier,
		MaxInterval:         e.policy.MaxDelay,
	}

	return backoff.Retry(ctx, backoff.Operation[T](op),
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(e.policy.MaxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			e.logger.Debug("operation failed, retrying",
				"operation", label,
				"error", err,
				"next_attempt_in", next)
		}),
	)
}

// Permanent marks err as non-retryable: Execute returns it immediately
// without consuming further attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
