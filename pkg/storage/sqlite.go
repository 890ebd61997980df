package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"

	_ "modernc.org/sqlite" // SQLite driver
)

// sqliteSchema creates the three tables on first open. Policies and
// snapshots are JSON blobs keyed by profile; the request log carries
// indexed columns for time-window queries.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS budget_policies (
	profile    TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cost_snapshots (
	profile    TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS api_requests (
	id        TEXT PRIMARY KEY,
	profile   TEXT NOT NULL,
	ts        INTEGER NOT NULL,
	success   INTEGER NOT NULL,
	data      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_api_requests_ts ON api_requests(ts);
CREATE INDEX IF NOT EXISTS idx_api_requests_profile_ts ON api_requests(profile, ts);
`

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %q: %w", path, err)
	}

	// WAL keeps readers unblocked during saves; the busy timeout covers
	// checkpointing stalls.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SavePolicy upserts a policy.
func (s *SQLiteStore) SavePolicy(ctx context.Context, policy costs.BudgetPolicy) error {
	data, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO budget_policies (profile, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(profile) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		policy.ProfileName, string(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save policy for %q: %w", policy.ProfileName, err)
	}
	return nil
}

// LoadPolicies returns all persisted policies.
func (s *SQLiteStore) LoadPolicies(ctx context.Context) (map[string]costs.BudgetPolicy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT profile, data FROM budget_policies`)
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	defer rows.Close()

	out := make(map[string]costs.BudgetPolicy)
	for rows.Next() {
		var profile, data string
		if err := rows.Scan(&profile, &data); err != nil {
			return nil, err
		}
		var policy costs.BudgetPolicy
		if err := json.Unmarshal([]byte(data), &policy); err != nil {
			return nil, fmt.Errorf("failed to decode policy for %q: %w", profile, err)
		}
		out[profile] = policy
	}
	return out, rows.Err()
}

// SaveSnapshot upserts a cache mirror entry.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap costs.CostSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cost_snapshots (profile, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(profile) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		snap.ProfileName, string(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save snapshot for %q: %w", snap.ProfileName, err)
	}
	return nil
}

// LoadSnapshots returns the mirrored cache entries.
func (s *SQLiteStore) LoadSnapshots(ctx context.Context) (map[string]costs.CostSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT profile, data FROM cost_snapshots`)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string]costs.CostSnapshot)
	for rows.Next() {
		var profile, data string
		if err := rows.Scan(&profile, &data); err != nil {
			return nil, err
		}
		var snap costs.CostSnapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot for %q: %w", profile, err)
		}
		out[profile] = snap
	}
	return out, rows.Err()
}

// AppendRequest adds one record to the log.
func (s *SQLiteStore) AppendRequest(ctx context.Context, record costs.APIRequestRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode request record: %w", err)
	}
	success := 0
	if record.Success {
		success = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO api_requests (id, profile, ts, success, data) VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.ProfileName, record.Timestamp.UnixNano(), success, string(data))
	if err != nil {
		return fmt.Errorf("failed to append request record: %w", err)
	}
	return nil
}

// LoadRequests returns records at or after since, oldest first.
func (s *SQLiteStore) LoadRequests(ctx context.Context, since time.Time) ([]costs.APIRequestRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM api_requests WHERE ts >= ? ORDER BY ts ASC`, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to load request records: %w", err)
	}
	defer rows.Close()

	var out []costs.APIRequestRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var record costs.APIRequestRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("failed to decode request record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// PruneRequests deletes records older than before.
func (s *SQLiteStore) PruneRequests(ctx context.Context, before time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM api_requests WHERE ts < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune request records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
