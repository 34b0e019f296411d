package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveOpenRemove(t *testing.T) {
	t.Parallel()

	store, err := NewLocalFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	path, err := store.Save(7, "photo.JPG", bytes.NewReader([]byte("payload")))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(path, "7"+string(os.PathSeparator)) {
		t.Fatalf("path should be namespaced by user, got %q", path)
	}
	if filepath.Ext(path) != ".jpg" {
		t.Fatalf("extension should be preserved lowercase, got %q", path)
	}

	reader, err := store.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	raw, _ := io.ReadAll(reader)
	_ = reader.Close()
	if string(raw) != "payload" {
		t.Fatalf("unexpected content %q", raw)
	}

	if err := store.Remove(path); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := store.Open(path); err == nil {
		t.Fatalf("open should fail after remove")
	}

	// Removing twice is not an error.
	if err := store.Remove(path); err != nil {
		t.Fatalf("second remove failed: %v", err)
	}
}

func TestOpenRejectsEscapingPaths(t *testing.T) {
	t.Parallel()

	store, err := NewLocalFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if _, err := store.Open("../../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}
