package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/retry"
)

// DefaultTTL is the entry lifetime used when none is configured.
const DefaultTTL = time.Hour

// ResultStatus classifies the outcome of a cache read.
type ResultStatus string

const (
	// StatusSuccess means a live entry was found and decoded.
	StatusSuccess ResultStatus = "success"

	// StatusExpired means an entry was found but its TTL has run out.
	// The entry is still returned; callers may prefer stale data to none.
	StatusExpired ResultStatus = "expired"

	// StatusNotFound means no entry exists under the key.
	StatusNotFound ResultStatus = "not_found"

	// StatusError means the read failed (network, permissions, decode).
	StatusError ResultStatus = "error"
)

// CacheResult is the outcome of Client.Get.
type CacheResult struct {
	Status ResultStatus
	Entry  *RemoteCacheEntry
	Err    error
}

// Config holds client settings independent of the backing store.
type Config struct {
	// Prefix is the key prefix all entries live under.
	Prefix string

	// TTL is how long written entries stay fresh. Defaults to DefaultTTL.
	TTL time.Duration

	// CreatedBy tags entries written by this process. Defaults to
	// "<hostname>-<short uuid>".
	CreatedBy string
}

// Client serializes, compresses, and moves cache entries to and from the
// object store. Every store call runs under the retry executor; the
// non-retryable error kinds short-circuit after one attempt.
type Client struct {
	store     ObjectStore
	prefix    string
	ttl       time.Duration
	createdBy string
	executor  *retry.Executor
	clock     costs.Clock
	stats     counters
	logger    *slog.Logger
}

// NewClient creates a team cache client over the given store.
func NewClient(store ObjectStore, cfg Config, executor *retry.Executor, clock costs.Clock) *Client {
	if executor == nil {
		executor = retry.NewExecutor(retry.DefaultPolicy())
	}
	if clock == nil {
		clock = costs.SystemClock{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CreatedBy == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "unknown"
		}
		cfg.CreatedBy = fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
	}
	return &Client{
		store:     store,
		prefix:    cfg.Prefix,
		ttl:       cfg.TTL,
		createdBy: cfg.CreatedBy,
		executor:  executor,
		clock:     clock,
		logger:    slog.Default().With("component", "cache.team"),
	}
}

// Stats returns a copy of the running statistics counters.
func (c *Client) Stats() Stats { return c.stats.snapshot() }

// Connected reports the last-known-connected state.
func (c *Client) Connected() bool { return c.stats.connected.Load() }

// KeyFor derives the cache key for an account and month.
func (c *Client) KeyFor(accountID string, t time.Time) (string, error) {
	return BuildKey(c.prefix, accountID, t)
}

// Get fetches and decodes the entry under key, classifying the outcome.
// Expired is distinct from NotFound: the entry existed but its TTL passed.
func (c *Client) Get(ctx context.Context, key string) CacheResult {
	data, err := retry.Do(ctx, c.executor, "cache-get", func() ([]byte, error) {
		b, gerr := c.store.Get(ctx, key)
		return b, c.markRetryable(gerr)
	})
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			// The store answered; absence is not a connectivity failure.
			c.stats.misses.Add(1)
			c.stats.connected.Store(true)
			return CacheResult{Status: StatusNotFound}
		}
		c.stats.errors.Add(1)
		c.stats.connected.Store(false)
		return CacheResult{Status: StatusError, Err: err}
	}
	c.stats.connected.Store(true)

	entry, err := decodeEntry(key, data)
	if err != nil {
		c.stats.errors.Add(1)
		return CacheResult{Status: StatusError, Err: err}
	}

	if c.clock.Now().After(entry.ExpiresAt()) {
		c.stats.misses.Add(1)
		return CacheResult{Status: StatusExpired, Entry: entry}
	}

	c.stats.hits.Add(1)
	return CacheResult{Status: StatusSuccess, Entry: entry}
}

// Put encodes and uploads an entry, overwriting wholesale.
func (c *Client) Put(ctx context.Context, key string, entry *RemoteCacheEntry) error {
	data, err := encodeEntry(entry)
	if err != nil {
		c.stats.errors.Add(1)
		return err
	}

	err = c.executor.Execute(ctx, "cache-put", func() error {
		return c.markRetryable(c.store.Put(ctx, key, data))
	})
	if err != nil {
		c.stats.errors.Add(1)
		c.stats.connected.Store(false)
		return err
	}
	c.stats.bytesWritten.Add(int64(len(data)))
	c.stats.connected.Store(true)
	return nil
}

// Head reports whether an entry exists under key without downloading it.
func (c *Client) Head(ctx context.Context, key string) (bool, error) {
	exists, err := retry.Do(ctx, c.executor, "cache-head", func() (bool, error) {
		ok, herr := c.store.Head(ctx, key)
		return ok, c.markRetryable(herr)
	})
	if err != nil {
		c.stats.errors.Add(1)
		c.stats.connected.Store(false)
		return false, err
	}
	c.stats.connected.Store(true)
	return exists, nil
}

// Delete removes an entry.
func (c *Client) Delete(ctx context.Context, key string) error {
	err := c.executor.Execute(ctx, "cache-delete", func() error {
		return c.markRetryable(c.store.Delete(ctx, key))
	})
	if err != nil {
		c.stats.errors.Add(1)
		c.stats.connected.Store(false)
		return err
	}
	c.stats.connected.Store(true)
	return nil
}

// List returns all keys under prefix (relative to the client's configured
// prefix when prefix is empty).
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	if prefix == "" {
		prefix = c.prefix
	}
	keys, err := retry.Do(ctx, c.executor, "cache-list", func() ([]string, error) {
		ks, lerr := c.store.List(ctx, prefix)
		return ks, c.markRetryable(lerr)
	})
	if err != nil {
		c.stats.errors.Add(1)
		c.stats.connected.Store(false)
		return nil, err
	}
	c.stats.connected.Store(true)
	return keys, nil
}

// ReadMonth fetches the entry for an account's month.
func (c *Client) ReadMonth(ctx context.Context, accountID string, t time.Time) CacheResult {
	key, err := c.KeyFor(accountID, t)
	if err != nil {
		return CacheResult{Status: StatusError, Err: err}
	}
	return c.Get(ctx, key)
}

// WriteSnapshot writes a snapshot back as the account's current-month entry.
func (c *Client) WriteSnapshot(ctx context.Context, snap costs.CostSnapshot, accountID string) error {
	key, err := c.KeyFor(accountID, snap.Range.Start)
	if err != nil {
		return err
	}
	entry := EntryFromSnapshot(snap, accountID, c.createdBy, key, c.ttl, c.clock.Now())
	return c.Put(ctx, key, entry)
}

// PruneOlderThan deletes entries whose month is more than `months` calendar
// months before the current one. Returns the number of deleted objects.
func (c *Client) PruneOlderThan(ctx context.Context, months int) (int, error) {
	if months <= 0 {
		return 0, NewCacheError(KindInvalidConfiguration, "prune", "",
			fmt.Errorf("months must be positive, got %d", months))
	}
	cutoff := costs.MonthRange(c.clock.Now()).Start.AddDate(0, -months, 0)

	keys, err := c.List(ctx, c.prefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, key := range keys {
		month, ok := KeyMonth(key)
		if !ok || !month.Before(cutoff) {
			continue
		}
		if err := c.Delete(ctx, key); err != nil {
			return deleted, err
		}
		c.logger.Info("pruned stale team cache entry", "key", key)
		deleted++
	}
	return deleted, nil
}

// markRetryable wraps non-retryable classified errors so the executor stops
// immediately. Missing objects are also permanent: retrying a miss cannot
// make the object appear.
func (c *Client) markRetryable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrObjectNotFound) {
		return retry.Permanent(err)
	}
	var ce *CacheError
	if errors.As(err, &ce) && !ce.Retryable() {
		return retry.Permanent(err)
	}
	return err
}
