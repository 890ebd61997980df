// Package storage persists the pieces of state that survive restarts:
// budget policies, the local cache mirror, and the API request log.
//
// The core treats persistence as load-at-startup, save-on-change. Two
// backends implement the Store interface:
//
//   - MemoryStore: process-local, for tests and ephemeral runs
//   - SQLiteStore: durable single-file storage (modernc.org/sqlite, no cgo)
//
// Values are stored as JSON blobs keyed by profile; the request log adds
// indexed timestamp and profile columns so pruning and "last successful
// call" queries stay cheap as the log grows.
package storage
