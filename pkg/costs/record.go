package costs

import "time"

// RequestLogWindow is how far back APIRequestRecord entries are retained.
const RequestLogWindow = 30 * 24 * time.Hour

// APIRequestRecord is one entry in the append-only log of upstream API
// calls. The log doubles as observability data and as the staleness
// fallback when no cache entry exists for a profile.
type APIRequestRecord struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	// Timestamp is when the call started.
	Timestamp time.Time `json:"timestamp"`

	// ProfileName is the profile the call was made for.
	ProfileName string `json:"profile_name"`

	// Endpoint labels the upstream operation (e.g., "GetCostAndUsage").
	Endpoint string `json:"endpoint"`

	// Success reports whether the call completed without error.
	Success bool `json:"success"`

	// Duration is how long the call took.
	Duration time.Duration `json:"duration"`

	// ErrorText carries the error message for failed calls.
	ErrorText string `json:"error_text,omitempty"`
}
