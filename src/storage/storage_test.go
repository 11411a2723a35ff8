package storage

import (
	"path/filepath"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	if _, ok, err := store.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want absent", ok, err)
	}
	if err := store.Set("k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := store.Get("k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("Get(k) = %q ok=%v err=%v, want \"v\"", v, ok, err)
	}
	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get("k"); ok {
		t.Fatal("key still present after Delete")
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if store.Flushes() != 1 {
		t.Fatalf("Flushes() = %d, want 1", store.Flushes())
	}
}

func TestJSONHelpers(t *testing.T) {
	store := NewMemoryStore()

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var out record
	ok, err := GetJSON(store, "rec", &out)
	if err != nil || ok {
		t.Fatalf("GetJSON on absent key = ok=%v err=%v, want absent", ok, err)
	}

	if err := SetJSON(store, "rec", record{Name: "a", Count: 2}); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}
	ok, err = GetJSON(store, "rec", &out)
	if err != nil || !ok {
		t.Fatalf("GetJSON = ok=%v err=%v, want present", ok, err)
	}
	if out.Name != "a" || out.Count != 2 {
		t.Fatalf("GetJSON decoded %+v, want {a 2}", out)
	}

	if err := store.Set("bad", "{not json"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := GetJSON(store, "bad", &out); err == nil {
		t.Fatal("GetJSON on malformed value should fail")
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	if err := store.Set("device", `{"id":"abc"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("device", `{"id":"def"}`); err != nil {
		t.Fatalf("Set (overwrite) failed: %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	v, ok, err := reopened.Get("device")
	if err != nil || !ok {
		t.Fatalf("Get after reopen = ok=%v err=%v, want present", ok, err)
	}
	if v != `{"id":"def"}` {
		t.Fatalf("Get after reopen = %q, want overwritten value", v)
	}

	if err := reopened.Delete("device"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := reopened.Get("device"); ok {
		t.Fatal("key still present after Delete")
	}
	// Deleting an absent key is not an error.
	if err := reopened.Delete("device"); err != nil {
		t.Fatalf("Delete of absent key failed: %v", err)
	}
}
