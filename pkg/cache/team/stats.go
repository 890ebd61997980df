package team

import "sync/atomic"

// Stats is a point-in-time copy of the client's counters.
type Stats struct {
	// Hits is the number of Get calls that returned a usable entry.
	Hits int64

	// Misses is the number of Get calls that found no entry (or an expired one).
	Misses int64

	// Errors is the number of failed operations.
	Errors int64

	// BytesWritten is the total compressed bytes uploaded by Put.
	BytesWritten int64
}

// counters holds the client's live statistics. All fields are updated
// atomically; reads never block cache operations.
type counters struct {
	hits         atomic.Int64
	misses       atomic.Int64
	errors       atomic.Int64
	bytesWritten atomic.Int64

	// connected is the last-known-connected flag, flipped on every
	// successful or failed store call.
	connected atomic.Bool
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Errors:       c.errors.Load(),
		BytesWritten: c.bytesWritten.Load(),
	}
}
