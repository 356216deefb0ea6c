package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/louisbranch/hrdesk/internal/services/notifications/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestPutGetDelete(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, storage.KeySubjectID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing = %v, want %v", err, storage.ErrNotFound)
	}
	if err := store.Put(ctx, storage.KeySubjectID, "emp-1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, storage.KeySubjectID, "emp-2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := store.Get(ctx, " "+storage.KeySubjectID+" ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "emp-2" {
		t.Fatalf("value = %q, want %q", got, "emp-2")
	}

	if err := store.Delete(ctx, storage.KeySubjectID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, storage.KeySubjectID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestRejectsBlankKey(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.Put(context.Background(), "  ", "x"); err == nil {
		t.Fatal("expected blank key error")
	}
	if _, err := store.Get(context.Background(), ""); err == nil {
		t.Fatal("expected blank key error")
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notifier.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Put(context.Background(), storage.KeyNotificationPermission, "granted"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), storage.KeyNotificationPermission)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "granted" {
		t.Fatalf("value = %q, want granted", got)
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Put(ctx, "k", "v"); !errors.Is(err, context.Canceled) {
		t.Fatalf("put = %v, want %v", err, context.Canceled)
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	storePath := filepath.Join(t.TempDir(), "notifier.db")
	store, err := Open(storePath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Fatalf("close store: %v", closeErr)
		}
	})
	return store
}
