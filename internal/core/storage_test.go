package core

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"testing"

	"bookclub/internal/config"
	"bookclub/internal/infra/persistence/memory"
	"bookclub/internal/infra/persistence/postgres"
	"bookclub/internal/infra/persistence/postgres/testutil"
	"bookclub/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	store, err := OpenPersistentStore(context.Background(), config.Storage{Driver: config.StorageMemory}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected *memory.Store, got %T", store)
	}
}

func TestOpenPersistentStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "custom.db")
	for _, driver := range []string{"", config.StorageSQLite} {
		store, err := OpenPersistentStore(context.Background(), config.Storage{Driver: driver, SQLitePath: path}, NewDefaultRulesEngine())
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		s, ok := store.(*sqlite.Store)
		if !ok {
			t.Fatalf("expected *sqlite.Store, got %T", store)
		}
		if s.Path() != path {
			t.Fatalf("expected path %s, got %s", path, s.Path())
		}
		if _, ok := store.(io.Closer); !ok {
			t.Fatalf("expected sqlite store to be closable")
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
}

func TestOpenPersistentStorePostgres(t *testing.T) {
	db, conn := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := OpenPersistentStore(context.Background(), config.Storage{Driver: config.StoragePostgres, PostgresDSN: "postgres://stub"}, nil)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if _, ok := store.(*postgres.Store); !ok {
		t.Fatalf("expected *postgres.Store, got %T", store)
	}
	if conn.ExecCount("CREATE TABLE") == 0 {
		t.Fatalf("expected schema statements")
	}
}

func TestOpenPersistentStorePostgresFailureReturnsNilStore(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := postgres.OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := OpenPersistentStore(context.Background(), config.Storage{Driver: config.StoragePostgres}, nil)
	if err == nil {
		t.Fatalf("expected ping failure")
	}
	if store != nil {
		t.Fatalf("expected nil store on failure, got %T", store)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	store, err := OpenPersistentStore(context.Background(), config.Storage{Driver: "gibberish"}, nil)
	if err == nil || store != nil {
		t.Fatalf("expected error for unknown driver, got store=%v err=%v", store, err)
	}
}
