package refresh

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a refresh failure. The set is closed; callers may
// switch over it to pick a presentation (for example, offering a forced
// retry on KindRateLimited but not on KindUpstreamFailure).
type ErrorKind string

const (
	// KindNoProfileSelected means the refresh was invoked with no profile.
	KindNoProfileSelected ErrorKind = "no_profile_selected"

	// KindRateLimited means the minimum spacing since the previous live
	// fetch has not elapsed and no cached data was available to serve.
	KindRateLimited ErrorKind = "rate_limited"

	// KindCircuitBreakerOpen means consecutive upstream failures have
	// tripped the breaker and the call was not forced.
	KindCircuitBreakerOpen ErrorKind = "circuit_breaker_open"

	// KindUpstreamFailure means the live fetch itself failed.
	KindUpstreamFailure ErrorKind = "upstream_failure"

	// KindNoDataReturned means the upstream call succeeded but carried no
	// cost rows at all.
	KindNoDataReturned ErrorKind = "no_data_returned"
)

// RefreshError is the error type returned by Orchestrator.Refresh.
type RefreshError struct {
	Kind        ErrorKind
	ProfileName string
	// WaitSeconds is set for KindRateLimited: whole seconds until the next
	// live fetch is allowed, rounded up.
	WaitSeconds int
	Cause       error
}

func (e *RefreshError) Error() string {
	switch e.Kind {
	case KindNoProfileSelected:
		return "refresh: no profile selected"
	case KindRateLimited:
		return fmt.Sprintf("refresh %s: rate limited, retry in %ds", e.ProfileName, e.WaitSeconds)
	case KindCircuitBreakerOpen:
		return fmt.Sprintf("refresh %s: circuit breaker open", e.ProfileName)
	case KindNoDataReturned:
		return fmt.Sprintf("refresh %s: no cost data returned", e.ProfileName)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("refresh %s: %s: %v", e.ProfileName, e.Kind, e.Cause)
		}
		return fmt.Sprintf("refresh %s: %s", e.ProfileName, e.Kind)
	}
}

func (e *RefreshError) Unwrap() error { return e.Cause }

// KindOf returns the ErrorKind carried by err, or "" when err is not a
// *RefreshError.
func KindOf(err error) ErrorKind {
	var re *RefreshError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
