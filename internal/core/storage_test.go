package core

import (
	"path/filepath"
	"testing"

	"roadmapcore/internal/infra/persistence/memory"
	"roadmapcore/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("ROADMAPCORE_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(NewRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestOpenPersistentStoreSQLiteDefault(t *testing.T) {
	t.Setenv("ROADMAPCORE_STORAGE_DRIVER", "")
	t.Setenv("ROADMAPCORE_SQLITE_PATH", filepath.Join(t.TempDir(), "state.db"))
	store, err := OpenPersistentStore(NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	sq, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	defer func() { _ = sq.Close() }()
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("ROADMAPCORE_STORAGE_DRIVER", "etcd")
	if _, err := OpenPersistentStore(NewRulesEngine()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
