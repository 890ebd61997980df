// Package team implements the shared, object-store-backed cache tier.
//
// # Overview
//
// Team members monitoring the same billing account share month-to-date cost
// data through an object store (S3). One process fetches from the metered
// billing API and writes the result back; everyone else reads it from the
// store and skips the API call entirely.
//
// # Key scheme
//
// One object per account per calendar month:
//
//	{prefix}/{accountId}/{year}-{month}/full-data
//
// This bounds storage growth and makes "delete entries older than N months"
// a prefix-listable maintenance operation (see Client.PruneOlderThan).
//
// # Wire format
//
// RemoteCacheEntry -> canonical JSON -> gzip. JSON field order follows the
// struct definition, gzip carries no timestamp, so identical entries produce
// identical bytes. Entries are overwritten wholesale; conflict resolution is
// last-write-wins.
//
// # Errors
//
// Store failures are classified into a closed taxonomy (CacheError). The
// configuration-shaped kinds (bucket missing, access denied, invalid
// configuration, invalid key) are never retried; everything else is retried
// by the package's retry executor.
package team
