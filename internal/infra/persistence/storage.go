// Package persistence selects a concrete session-store backend from the
// environment.
package persistence

import (
	"fmt"
	"os"

	"growvertising/internal/core"
	"growvertising/internal/infra/persistence/postgres"
	"growvertising/internal/infra/persistence/sqlite"
	"growvertising/pkg/domain"
)

// Driver identifies a concrete session-store implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// OpenSessionStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	GROWVERTISING_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	GROWVERTISING_SQLITE_PATH: path to sqlite file (default ./growvertising.db)
//	GROWVERTISING_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenSessionStore(engine *core.RulesEngine) (domain.SessionStore, error) {
	driver := os.Getenv("GROWVERTISING_STORAGE_DRIVER")
	if driver == "" {
		driver = string(DriverSQLite)
	}
	switch Driver(driver) {
	case DriverMemory:
		return core.NewMemoryStore(engine), nil
	case DriverSQLite:
		path := os.Getenv("GROWVERTISING_SQLITE_PATH")
		return sqlite.NewStore(path, engine)
	case DriverPostgres:
		dsn := os.Getenv("GROWVERTISING_POSTGRES_DSN")
		return postgres.NewStore(dsn, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
