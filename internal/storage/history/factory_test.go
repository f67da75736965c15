// internal/storage/history/factory_test.go
package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/newthinker/datacheck/internal/core"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, Config{})
	if err != nil || store != nil {
		t.Fatalf("disabled history: got %v, %v", store, err)
	}

	store, err = Open(ctx, Config{Type: TypeMemory, MaxSize: 10})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("expected *MemoryStore, got %T", store)
	}

	store, err = Open(ctx, Config{Type: TypeSQLite, Path: filepath.Join(t.TempDir(), "h.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", store)
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := Open(ctx, Config{Type: TypeSQLite}); !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
	if _, err := Open(ctx, Config{Type: "redis"}); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}
