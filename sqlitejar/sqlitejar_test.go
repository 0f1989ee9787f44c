package sqlitejar

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/equigo/harmonics/legendre"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tables.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	want, err := legendre.Derive(4)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if err := store.Put(4, want); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := store.Get(4)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit after put")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestGetMiss(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	got, ok, err := store.Get(9)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || got != nil {
		t.Fatalf("expected a miss, got ok=%v table=%v", ok, got)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	tab, err := legendre.Derive(2)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.Put(2, tab); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	got, ok, err := store.Get(2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if diff := cmp.Diff(tab, got); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestCorruptRowIsMissAndRepairable(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.sqlDB.Exec(
		`INSERT INTO legendre_tables (degree, table_gob, created_at) VALUES (3, ?, 0)`,
		[]byte("not a gob"),
	); err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}

	if _, ok, err := store.Get(3); err != nil || ok {
		t.Fatalf("expected silent miss for corrupt row, got ok=%v err=%v", ok, err)
	}

	tab, err := legendre.Derive(3)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if err := store.Put(3, tab); err != nil {
		t.Fatalf("repair put: %v", err)
	}
	got, ok, err := store.Get(3)
	if err != nil {
		t.Fatalf("get after repair: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit after repair")
	}
	if diff := cmp.Diff(tab, got); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestReopenSeesExistingRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tables.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	tab, err := legendre.Derive(5)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if err := first.Put(5, tab); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, ok, err := second.Get(5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit after reopen")
	}
	if diff := cmp.Diff(tab, got); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestClosedStoreErrors(t *testing.T) {
	t.Parallel()

	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
	if _, _, err := (&Store{}).Get(1); err == nil {
		t.Fatal("expected error from unopened store")
	}
	if err := (&Store{}).Put(1, &legendre.Table{}); err == nil {
		t.Fatal("expected error from unopened store")
	}
}
