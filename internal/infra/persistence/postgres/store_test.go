package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"growvertising/internal/core"
	"growvertising/pkg/domain"
)

var stubSeq uint64

// stubConn emulates the single state table the store reads and writes.
type stubConn struct {
	execs   []string
	buckets map[string][]byte
	pingErr error
	closes  atomic.Int32
}

func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{buckets: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d_%d", atomic.AddUint64(&stubSeq, 1), time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *stubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error {
	c.closes.Add(1)
	return nil
}

func (c *stubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *stubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return stubTx{}, nil
}

func (c *stubConn) Ping(context.Context) error { return c.pingErr }

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.execs = append(c.execs, query)
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT INTO STATE") {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected bucket and payload args, got %d", len(args))
		}
		bucket, ok := args[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("bucket arg is %T", args[0].Value)
		}
		payload, ok := args[1].Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("payload arg is %T", args[1].Value)
		}
		c.buckets[bucket] = append([]byte(nil), payload...)
	}
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(strings.ToLower(query), "from state") {
		return nil, fmt.Errorf("unexpected query %s", query)
	}
	rows := make([][]driver.Value, 0, len(c.buckets))
	for bucket, payload := range c.buckets {
		rows = append(rows, []driver.Value{bucket, append([]byte(nil), payload...)})
	}
	return &stubRows{cols: []string{"bucket", "payload"}, rows: rows}, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func TestNewStoreEnsuresTableAndHydrates(t *testing.T) {
	db, conn := newStubDB()

	plants := []domain.Plant{{
		Base:      domain.Base{ID: "plant-00000001"},
		Species:   domain.SpeciesTomato,
		Stage:     domain.StageGrowing,
		Progress:  42,
		PlantedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}}
	payload, err := json.Marshal(plants)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	conn.buckets["plants"] = payload
	meta, err := json.Marshal(storeMeta{Seq: 1, Seeded: true, Counters: domain.EngagementCounters{PlantsGrown: 9}})
	if err != nil {
		t.Fatalf("marshal meta: %v", err)
	}
	conn.buckets["meta"] = meta

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("", core.NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	var sawDDL bool
	for _, stmt := range conn.execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs %v", conn.execs)
	}

	plant, ok := store.GetPlant("plant-00000001")
	if !ok {
		t.Fatalf("plant not hydrated")
	}
	if plant.Progress != 42 || plant.Species != domain.SpeciesTomato {
		t.Fatalf("hydrated plant mismatch: %+v", plant)
	}
	if store.Counters().PlantsGrown != 9 {
		t.Fatalf("counters not hydrated: %+v", store.Counters())
	}
}

func TestRunInTransactionPersistsBuckets(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("ignored", core.NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateUpload(domain.Upload{Author: "alice", Caption: "sprout", Location: "Unknown"}); err != nil {
			return err
		}
		tx.AddSeedKits(2)
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}

	for _, bucket := range postgresBuckets {
		if _, ok := conn.buckets[bucket]; !ok {
			t.Fatalf("bucket %s not persisted, have %v", bucket, conn.buckets)
		}
	}

	var uploads []domain.Upload
	if err := json.Unmarshal(conn.buckets["uploads"], &uploads); err != nil {
		t.Fatalf("decode uploads bucket: %v", err)
	}
	if len(uploads) != 1 || uploads[0].Author != "alice" {
		t.Fatalf("persisted uploads mismatch: %+v", uploads)
	}

	var meta storeMeta
	if err := json.Unmarshal(conn.buckets["meta"], &meta); err != nil {
		t.Fatalf("decode meta bucket: %v", err)
	}
	if meta.Counters.SeedKits != 2 {
		t.Fatalf("persisted counters mismatch: %+v", meta)
	}
}

func TestRuleViolationSkipsPersistence(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("", core.NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreatePlant(domain.Plant{Species: domain.SpeciesMint, Progress: -1})
		return err
	})
	if err == nil {
		t.Fatalf("expected rule violation")
	}
	if len(conn.buckets) != 0 {
		t.Fatalf("blocked transaction persisted buckets %v", conn.buckets)
	}
}

func TestNewStoreFailsWhenPingFails(t *testing.T) {
	db, conn := newStubDB()
	conn.pingErr = fmt.Errorf("connection refused")
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	if _, err := NewStore("", core.NewDefaultRulesEngine()); err == nil {
		t.Fatalf("expected ping failure to surface")
	}
	if conn.closes.Load() == 0 {
		t.Fatalf("expected connection to be closed after failed open")
	}
}
