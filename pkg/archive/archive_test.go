package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFSStorePutWriteOnce(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}

	digest := "abc123"
	if err := store.Put(ctx, digest, "original text"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// same digest again with different content: original must survive
	if err := store.Put(ctx, digest, "other text"); err != nil {
		t.Fatalf("Put() second call error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, digest+".txt"))
	if err != nil {
		t.Fatalf("reading archived file: %v", err)
	}
	if string(data) != "original text" {
		t.Errorf("archive content = %q, want the first write preserved", data)
	}
}

func TestFSStorePutEmptyDigest(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}
	if err := store.Put(context.Background(), "", "text"); err == nil {
		t.Error("Put(\"\") = nil error, want failure")
	}
}

func TestNewFSStoreCreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if _, err := NewFSStore(dir); err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("archive dir not created: %v", err)
	}
}
