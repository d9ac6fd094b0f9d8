package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func putBlob(t *testing.T, store Store, key, content string) Info {
	t.Helper()
	info, err := store.Put(context.Background(), key, "text/csv", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Put(%s): %v", key, err)
	}
	return info
}

func readBlob(t *testing.T, store Store, key string) (Info, string) {
	t.Helper()
	info, rc, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%s): %v", key, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return info, string(b)
}

func hashOf(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// exerciseStore runs the round trip every driver must satisfy.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	info := putBlob(t, store, "2024-03-05_lab_small.csv", "naam,type\n")
	if info.Size != int64(len("naam,type\n")) {
		t.Errorf("expected size %d, got %d", len("naam,type\n"), info.Size)
	}
	if info.SHA256 != hashOf("naam,type\n") {
		t.Errorf("unexpected hash %s", info.SHA256)
	}

	_, got := readBlob(t, store, "2024-03-05_lab_small.csv")
	if got != "naam,type\n" {
		t.Errorf("expected round trip content, got %q", got)
	}

	// overwrite
	putBlob(t, store, "2024-03-05_lab_small.csv", "v2")
	if _, got := readBlob(t, store, "2024-03-05_lab_small.csv"); got != "v2" {
		t.Errorf("expected overwritten content, got %q", got)
	}

	putBlob(t, store, "2024-03-05_lab_large.xlsx", "xlsx")
	putBlob(t, store, "2024-03-06_other_small.xlsx", "xlsx")

	infos, err := store.List(ctx, "2024-03-05_")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 blobs under prefix, got %d", len(infos))
	}
	if infos[0].Key != "2024-03-05_lab_large.xlsx" || infos[1].Key != "2024-03-05_lab_small.csv" {
		t.Errorf("expected sorted keys, got %s, %s", infos[0].Key, infos[1].Key)
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 blobs, got %d", len(all))
	}

	if _, _, err := store.Get(ctx, "missing.xlsx"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Drivers
// ---------------------------------------------------------------------------

func TestInMemoryStore(t *testing.T) {
	exerciseStore(t, NewInMemoryStore())
}

func TestInMemoryStore_Reset(t *testing.T) {
	store := NewInMemoryStore()
	putBlob(t, store, "a.csv", "x")
	store.Reset()
	infos, _ := store.List(context.Background(), "")
	if len(infos) != 0 {
		t.Fatalf("expected empty store after reset, got %d", len(infos))
	}
}

func TestInMemoryStore_ConcurrentPut(t *testing.T) {
	store := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "blob-" + string(rune('a'+i)) + ".csv"
			if _, err := store.Put(context.Background(), key, "", strings.NewReader("x")); err != nil {
				t.Errorf("Put: %v", err)
			}
		}(i)
	}
	wg.Wait()
	infos, _ := store.List(context.Background(), "blob-")
	if len(infos) != 20 {
		t.Fatalf("expected 20 blobs, got %d", len(infos))
	}
}

func TestFSStore(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	exerciseStore(t, store)
}

func TestFSStore_WritesPlainFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	putBlob(t, store, "2024-03-05_lab_small.xlsx", "content")

	b, err := os.ReadFile(filepath.Join(dir, "2024-03-05_lab_small.xlsx"))
	if err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
	if string(b) != "content" {
		t.Errorf("unexpected file content %q", b)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in the directory, got %d entries", len(entries))
	}

	info, _ := readBlob(t, store, "2024-03-05_lab_small.xlsx")
	if !strings.Contains(info.ContentType, "spreadsheetml") {
		t.Errorf("expected xlsx content type, got %q", info.ContentType)
	}
}

func TestFSStore_DefaultRoot(t *testing.T) {
	store, err := NewFSStore("")
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	if store.Root() != "." {
		t.Errorf("expected root '.', got %q", store.Root())
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	fsStore, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	stores := map[string]Store{"memory": NewInMemoryStore(), "fs": fsStore}
	for name, store := range stores {
		for _, key := range []string{"", "  ", "/etc/passwd", "../escape.csv", "a/../../b"} {
			_, err := store.Put(context.Background(), key, "", strings.NewReader("x"))
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("%s: Put(%q) expected ErrInvalidKey, got %v", name, key, err)
			}
		}
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if _, ok := s.(*InMemoryStore); !ok {
		t.Errorf("expected *InMemoryStore, got %T", s)
	}

	s, err = Open(ctx, Config{Driver: "", Root: t.TempDir()})
	if err != nil {
		t.Fatalf("Open default: %v", err)
	}
	if _, ok := s.(*FSStore); !ok {
		t.Errorf("expected *FSStore, got %T", s)
	}

	if _, err := Open(ctx, Config{Driver: "ftp"}); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); !errors.Is(err, ErrBucketRequired) {
		t.Errorf("expected ErrBucketRequired, got %v", err)
	}
}
