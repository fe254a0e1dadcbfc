// Package sqlite provides an embedded SQLite-backed session store. It reuses
// the in-memory transactional semantics and snapshots the full state to a
// single table as JSON blobs after every successful transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"growvertising/internal/core"
	"growvertising/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.SessionStore = (*Store)(nil)

// storeMeta carries the snapshot fields that are not entity collections.
type storeMeta struct {
	Seq      uint64                    `json:"seq"`
	Seeded   bool                      `json:"seeded"`
	Counters domain.EngagementCounters `json:"counters"`
}

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*core.MemoryStore
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed session store.
func NewStore(path string, engine *core.RulesEngine) (*Store, error) {
	if path == "" {
		path = "growvertising.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{MemoryStore: core.NewMemoryStore(engine), db: db, path: path}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

var sqliteBuckets = []string{"plants", "harvests", "uploads", "comments", "campaigns", "meta"}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	type raw struct {
		bucket  string
		payload []byte
	}
	var raws []raw
	for rows.Next() {
		var r raw
		if err := rows.Scan(&r.bucket, &r.payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		raws = append(raws, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(raws) == 0 {
		return nil
	}
	snapshot := core.Snapshot{}
	for _, r := range raws {
		switch r.bucket {
		case "plants":
			if err := json.Unmarshal(r.payload, &snapshot.Plants); err != nil {
				return fmt.Errorf("decode plants: %w", err)
			}
		case "harvests":
			if err := json.Unmarshal(r.payload, &snapshot.Harvests); err != nil {
				return fmt.Errorf("decode harvests: %w", err)
			}
		case "uploads":
			if err := json.Unmarshal(r.payload, &snapshot.Uploads); err != nil {
				return fmt.Errorf("decode uploads: %w", err)
			}
		case "comments":
			if err := json.Unmarshal(r.payload, &snapshot.Comments); err != nil {
				return fmt.Errorf("decode comments: %w", err)
			}
		case "campaigns":
			if err := json.Unmarshal(r.payload, &snapshot.Campaigns); err != nil {
				return fmt.Errorf("decode campaigns: %w", err)
			}
		case "meta":
			var meta storeMeta
			if err := json.Unmarshal(r.payload, &meta); err != nil {
				return fmt.Errorf("decode meta: %w", err)
			}
			snapshot.Seq = meta.Seq
			snapshot.Seeded = meta.Seeded
			snapshot.Counters = meta.Counters
		}
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case "plants":
			data, err = json.Marshal(snapshot.Plants)
		case "harvests":
			data, err = json.Marshal(snapshot.Harvests)
		case "uploads":
			data, err = json.Marshal(snapshot.Uploads)
		case "comments":
			data, err = json.Marshal(snapshot.Comments)
		case "campaigns":
			data, err = json.Marshal(snapshot.Campaigns)
		case "meta":
			data, err = json.Marshal(storeMeta{Seq: snapshot.Seq, Seeded: snapshot.Seeded, Counters: snapshot.Counters})
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.MemoryStore.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
