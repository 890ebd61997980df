package team

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/retry"
)

// ============================================================================
// Fake object store
// ============================================================================

// fakeStore is an in-memory ObjectStore that can inject failures and counts
// attempts per operation.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failWith error // returned by every op until cleared
	getCalls int
	putCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, ErrObjectNotFound)
	}
	return data, nil
}

func (f *fakeStore) Put(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	if f.failWith != nil {
		return f.failWith
	}
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeStore) Head(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// ============================================================================
// Helpers
// ============================================================================

func fastExecutor() *retry.Executor {
	return retry.NewExecutor(retry.Policy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	})
}

func testSnapshot(clock costs.Clock) costs.CostSnapshot {
	now := clock.Now()
	return costs.CostSnapshot{
		ProfileName: "prod",
		FetchDate:   now,
		MTDTotal:    decimal.RequireFromString("123.45"),
		Currency:    "USD",
		DailyCosts: []costs.DailyCost{
			{Date: costs.MonthRange(now).Start, Amount: decimal.RequireFromString("10.00"), Currency: "USD"},
		},
		ServiceCosts: []costs.ServiceCost{
			{ServiceName: "Amazon EC2", Amount: decimal.RequireFromString("100.00"), Currency: "USD"},
			{ServiceName: "Amazon S3", Amount: decimal.RequireFromString("23.45"), Currency: "USD"},
		},
		Range: costs.MonthRange(now),
	}
}

func newTestClient(store ObjectStore, clock costs.Clock) *Client {
	return NewClient(store, Config{
		Prefix:    "team-cache",
		TTL:       time.Hour,
		CreatedBy: "test-host-1234",
	}, fastExecutor(), clock)
}

// ============================================================================
// Key scheme
// ============================================================================

func TestBuildKey(t *testing.T) {
	at := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

	key, err := BuildKey("team-cache", "123456789012", at)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if key != "team-cache/123456789012/2025-03/full-data" {
		t.Errorf("Unexpected key: %s", key)
	}

	// Empty prefix is allowed
	key, err = BuildKey("", "123456789012", at)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if key != "123456789012/2025-03/full-data" {
		t.Errorf("Unexpected key: %s", key)
	}
}

func TestBuildKey_InvalidAccount(t *testing.T) {
	at := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

	for _, account := range []string{"", "bad/account", "has space"} {
		_, err := BuildKey("p", account, at)
		if err == nil {
			t.Errorf("Expected error for account %q", account)
			continue
		}
		if kind, ok := KindOf(err); !ok || kind != KindInvalidKey {
			t.Errorf("Expected invalid_key classification for %q, got %v", account, err)
		}
	}
}

func TestKeyMonth(t *testing.T) {
	month, ok := KeyMonth("team-cache/123456789012/2025-03/full-data")
	if !ok {
		t.Fatal("Expected key to parse")
	}
	if month.Year() != 2025 || month.Month() != time.March {
		t.Errorf("Unexpected month: %v", month)
	}

	if _, ok := KeyMonth("not/a/cache-key"); ok {
		t.Error("Expected malformed key to be rejected")
	}
}

// ============================================================================
// Codec
// ============================================================================

func TestCodec_RoundTrip(t *testing.T) {
	clock := costs.NewManualClock(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC))
	snap := testSnapshot(clock)
	entry := EntryFromSnapshot(snap, "123456789012", "tester", "k", time.Hour, clock.Now())

	data, err := encodeEntry(entry)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := decodeEntry("k", data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !decoded.MTDTotal.Equal(entry.MTDTotal) {
		t.Errorf("Expected total %s, got %s", entry.MTDTotal, decoded.MTDTotal)
	}
	if decoded.AccountID != "123456789012" {
		t.Errorf("Unexpected account id: %s", decoded.AccountID)
	}
	if len(decoded.ServiceCosts) != 2 {
		t.Errorf("Expected 2 service costs, got %d", len(decoded.ServiceCosts))
	}
}

func TestCodec_Deterministic(t *testing.T) {
	clock := costs.NewManualClock(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC))
	snap := testSnapshot(clock)
	entry := EntryFromSnapshot(snap, "123456789012", "tester", "k", time.Hour, clock.Now())

	first, err := encodeEntry(entry)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	second, err := encodeEntry(entry)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Expected identical entries to serialize to identical bytes")
	}
}

func TestCodec_CompressionRatio(t *testing.T) {
	clock := costs.NewManualClock(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC))
	snap := testSnapshot(clock)
	// Pad with a realistic month of daily lines and a long service tail
	for d := 1; d <= 30; d++ {
		snap.DailyCosts = append(snap.DailyCosts, costs.DailyCost{
			Date:     time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC),
			Amount:   decimal.RequireFromString("12.34"),
			Currency: "USD",
		})
	}
	for s := 0; s < 40; s++ {
		snap.ServiceCosts = append(snap.ServiceCosts, costs.ServiceCost{
			ServiceName: fmt.Sprintf("Amazon Service Number %d", s),
			Amount:      decimal.RequireFromString("1.23"),
			Currency:    "USD",
		})
	}
	entry := EntryFromSnapshot(snap, "123456789012", "tester", "k", time.Hour, clock.Now())

	raw, _ := json.Marshal(entry)
	compressed, err := encodeEntry(entry)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(compressed)*2 > len(raw) {
		t.Errorf("Expected at least 50%% reduction: raw=%d compressed=%d", len(raw), len(compressed))
	}
}

func TestCodec_RejectsUnknownSchema(t *testing.T) {
	data, err := encodeEntry(&RemoteCacheEntry{SchemaVersion: 0})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	_, err = decodeEntry("k", data)
	if kind, ok := KindOf(err); !ok || kind != KindSerializationError {
		t.Errorf("Expected serialization_error for version 0, got %v", err)
	}
}

func TestCodec_RejectsGarbage(t *testing.T) {
	if _, err := decodeEntry("k", []byte("not gzip at all")); err == nil {
		t.Error("Expected error for non-gzip bytes")
	}
}

// ============================================================================
// Client
// ============================================================================

func TestClient_PutGetRoundTrip(t *testing.T) {
	clock := costs.NewManualClock(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC))
	store := newFakeStore()
	client := newTestClient(store, clock)

	snap := testSnapshot(clock)
	if err := client.WriteSnapshot(context.Background(), snap, "123456789012"); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	result := client.ReadMonth(context.Background(), "123456789012", clock.Now())
	if result.Status != StatusSuccess {
		t.Fatalf("Expected success, got %s (%v)", result.Status, result.Err)
	}
	if !result.Entry.MTDTotal.Equal(snap.MTDTotal) {
		t.Errorf("Expected total %s, got %s", snap.MTDTotal, result.Entry.MTDTotal)
	}
	if result.Entry.Metadata.CreatedBy != "test-host-1234" {
		t.Errorf("Unexpected creator tag: %s", result.Entry.Metadata.CreatedBy)
	}

	stats := client.Stats()
	if stats.Hits != 1 || stats.BytesWritten == 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if !client.Connected() {
		t.Error("Expected connected flag after successful calls")
	}
}

func TestClient_ExpiredDistinctFromNotFound(t *testing.T) {
	clock := costs.NewManualClock(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC))
	store := newFakeStore()
	client := newTestClient(store, clock)

	if err := client.WriteSnapshot(context.Background(), testSnapshot(clock), "123456789012"); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	// Past the 1h TTL: entry still exists, so this is Expired, not NotFound
	clock.Advance(2 * time.Hour)
	result := client.ReadMonth(context.Background(), "123456789012", clock.Now())
	if result.Status != StatusExpired {
		t.Fatalf("Expected expired, got %s", result.Status)
	}
	if result.Entry == nil {
		t.Error("Expected the expired entry to be returned")
	}

	// A key that never existed is NotFound
	missing := client.ReadMonth(context.Background(), "999999999999", clock.Now())
	if missing.Status != StatusNotFound {
		t.Errorf("Expected not_found, got %s", missing.Status)
	}
}

func TestClient_NotFoundNotRetried(t *testing.T) {
	clock := costs.NewManualClock(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC))
	store := newFakeStore()
	client := newTestClient(store, clock)

	result := client.ReadMonth(context.Background(), "123456789012", clock.Now())
	if result.Status != StatusNotFound {
		t.Fatalf("Expected not_found, got %s", result.Status)
	}
	if store.getCalls != 1 {
		t.Errorf("Expected exactly 1 store call for a miss, got %d", store.getCalls)
	}
	if client.Stats().Misses != 1 {
		t.Errorf("Expected 1 miss, got %+v", client.Stats())
	}
}

func TestClient_AccessDeniedAbortsAfterOneAttempt(t *testing.T) {
	clock := costs.NewManualClock(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC))
	store := newFakeStore()
	store.failWith = NewCacheError(KindAccessDenied, "get", "k", errors.New("forbidden"))
	client := newTestClient(store, clock)

	result := client.ReadMonth(context.Background(), "123456789012", clock.Now())
	if result.Status != StatusError {
		t.Fatalf("Expected error status, got %s", result.Status)
	}
	if kind, _ := KindOf(result.Err); kind != KindAccessDenied {
		t.Errorf("Expected access_denied, got %v", result.Err)
	}
	if store.getCalls != 1 {
		t.Errorf("Expected exactly 1 attempt for access denied, got %d", store.getCalls)
	}
	if client.Connected() {
		t.Error("Expected connected flag cleared after failure")
	}
}

func TestClient_NetworkErrorRetried(t *testing.T) {
	clock := costs.NewManualClock(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC))
	store := newFakeStore()
	store.failWith = NewCacheError(KindNetworkError, "get", "k", errors.New("connection reset"))
	client := newTestClient(store, clock)

	result := client.ReadMonth(context.Background(), "123456789012", clock.Now())
	if result.Status != StatusError {
		t.Fatalf("Expected error status, got %s", result.Status)
	}
	// 1 initial + 3 retries
	if store.getCalls != 4 {
		t.Errorf("Expected 4 attempts for a network error, got %d", store.getCalls)
	}
}

func TestClient_PutFailureCountsError(t *testing.T) {
	clock := costs.NewManualClock(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC))
	store := newFakeStore()
	store.failWith = NewCacheError(KindBucketNotFound, "put", "k", errors.New("no bucket"))
	client := newTestClient(store, clock)

	err := client.WriteSnapshot(context.Background(), testSnapshot(clock), "123456789012")
	if err == nil {
		t.Fatal("Expected error")
	}
	if store.putCalls != 1 {
		t.Errorf("Expected bucket_not_found to abort after 1 attempt, got %d", store.putCalls)
	}
	if client.Stats().Errors == 0 {
		t.Error("Expected error counter to increment")
	}
}

func TestClient_PruneOlderThan(t *testing.T) {
	now := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	clock := costs.NewManualClock(now)
	store := newFakeStore()
	client := newTestClient(store, clock)

	// Seed four months of entries
	for _, month := range []time.Time{
		time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
		now,
	} {
		key, _ := BuildKey("team-cache", "123456789012", month)
		data, _ := encodeEntry(&RemoteCacheEntry{SchemaVersion: SchemaVersion})
		if err := store.Put(context.Background(), key, data); err != nil {
			t.Fatal(err)
		}
	}

	// Cutoff is 2025-03-01: only February is strictly older
	deleted, err := client.PruneOlderThan(context.Background(), 3)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deletion, got %d", deleted)
	}

	keys, _ := client.List(context.Background(), "")
	if len(keys) != 3 {
		t.Errorf("Expected 3 surviving keys, got %d", len(keys))
	}
}

func TestClient_HeadAndDelete(t *testing.T) {
	clock := costs.NewManualClock(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC))
	store := newFakeStore()
	client := newTestClient(store, clock)

	key, _ := client.KeyFor("123456789012", clock.Now())
	exists, err := client.Head(context.Background(), key)
	if err != nil || exists {
		t.Fatalf("Expected absent key, got exists=%v err=%v", exists, err)
	}

	if err := client.WriteSnapshot(context.Background(), testSnapshot(clock), "123456789012"); err != nil {
		t.Fatal(err)
	}
	exists, _ = client.Head(context.Background(), key)
	if !exists {
		t.Error("Expected key to exist after write")
	}

	if err := client.Delete(context.Background(), key); err != nil {
		t.Fatal(err)
	}
	exists, _ = client.Head(context.Background(), key)
	if exists {
		t.Error("Expected key gone after delete")
	}
}
