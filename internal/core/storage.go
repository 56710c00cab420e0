package core

import (
	"fmt"
	"os"

	"roadmapcore/internal/infra/persistence/memory"
	"roadmapcore/internal/infra/persistence/postgres"
	"roadmapcore/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	ROADMAPCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	ROADMAPCORE_SQLITE_PATH: path to sqlite file (default ./roadmapcore.db)
//	ROADMAPCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("ROADMAPCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		path := os.Getenv("ROADMAPCORE_SQLITE_PATH")
		return sqlite.NewStore(path, engine)
	case StoragePostgres:
		dsn := os.Getenv("ROADMAPCORE_POSTGRES_DSN")
		return postgres.NewStore(dsn, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
