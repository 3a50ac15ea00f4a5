package core

import (
	"context"
	"fmt"

	"bookclub/internal/config"
	"bookclub/internal/infra/persistence/memory"
	"bookclub/internal/infra/persistence/postgres"
	"bookclub/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = config.StorageMemory   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = config.StorageSQLite   // embedded sqlite file
	StoragePostgres StorageDriver = config.StoragePostgres // PostgreSQL server
)

// OpenPersistentStore opens the backend selected by cfg. An empty driver
// means sqlite. Relational stores hold a database handle; callers release it
// through io.Closer.
func OpenPersistentStore(ctx context.Context, cfg config.Storage, engine *RulesEngine) (PersistentStore, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	driver := StorageDriver(cfg.Driver)
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		s, err := NewSQLiteStore(ctx, cfg.SQLitePath, engine)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoragePostgres:
		s, err := NewPostgresStore(ctx, cfg.PostgresDSN, engine)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// NewSQLiteStore opens a SQLite-backed store at path (empty for the default).
func NewSQLiteStore(ctx context.Context, path string, engine *RulesEngine) (*sqlite.Store, error) {
	return sqlite.NewStore(ctx, path, engine)
}

// NewPostgresStore opens a Postgres-backed store from dsn.
func NewPostgresStore(ctx context.Context, dsn string, engine *RulesEngine) (*postgres.Store, error) {
	return postgres.NewStore(ctx, dsn, engine)
}
