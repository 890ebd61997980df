package team

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a cache error into the closed taxonomy.
type ErrorKind string

const (
	// KindBucketNotFound means the configured bucket does not exist.
	KindBucketNotFound ErrorKind = "bucket_not_found"

	// KindAccessDenied means the credentials lack permission for the operation.
	KindAccessDenied ErrorKind = "access_denied"

	// KindInvalidConfiguration means the client is misconfigured (e.g., no
	// bucket name).
	KindInvalidConfiguration ErrorKind = "invalid_configuration"

	// KindInvalidKey means a cache key failed validation.
	KindInvalidKey ErrorKind = "invalid_key"

	// KindSerializationError means an entry could not be encoded or decoded.
	KindSerializationError ErrorKind = "serialization_error"

	// KindNetworkError covers transient transport and service failures.
	KindNetworkError ErrorKind = "network_error"
)

// CacheError is the error type for all team cache failures.
type CacheError struct {
	// Kind is the taxonomy classification.
	Kind ErrorKind

	// Op is the operation that failed ("get", "put", "head", "delete", "list").
	Op string

	// Key is the cache key involved, when applicable.
	Key string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("team cache %s [kind=%s, key=%s]: %v", e.Op, e.Kind, e.Key, e.Cause)
	}
	return fmt.Sprintf("team cache %s [kind=%s]: %v", e.Op, e.Kind, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *CacheError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the error is worth retrying. The
// configuration-shaped kinds will fail the same way on every attempt.
func (e *CacheError) Retryable() bool {
	switch e.Kind {
	case KindBucketNotFound, KindAccessDenied, KindInvalidConfiguration, KindInvalidKey:
		return false
	}
	return true
}

// NewCacheError creates a classified cache error.
func NewCacheError(kind ErrorKind, op, key string, cause error) *CacheError {
	return &CacheError{Kind: kind, Op: op, Key: key, Cause: cause}
}

// KindOf extracts the taxonomy kind from err, if it is (or wraps) a CacheError.
func KindOf(err error) (ErrorKind, bool) {
	var ce *CacheError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// ErrObjectNotFound marks a missing object. ObjectStore implementations
// wrap it for absent keys; the client turns it into a CacheResult status,
// never a CacheError.
var ErrObjectNotFound = errors.New("object not found")
