package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"telegram-search/internal/infra/storage"
)

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "deep", "state.json")

	if err := storage.EnsureDir(target); err != nil {
		t.Fatalf("EnsureDir() error: %v", err)
	}
	info, err := os.Stat(filepath.Dir(target))
	if err != nil || !info.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}

	// Путь без директории — no-op.
	if err = storage.EnsureDir("state.json"); err != nil {
		t.Fatalf("EnsureDir() for bare file name: %v", err)
	}
}

func TestAtomicWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "state.json")

	if err := storage.AtomicWriteFile(path, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("AtomicWriteFile() error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != `{"v":1}` {
		t.Fatalf("read back = %q, %v", got, err)
	}

	// Перезапись заменяет содержимое целиком.
	if err = storage.AtomicWriteFile(path, []byte(`{"v":2}`)); err != nil {
		t.Fatalf("AtomicWriteFile() overwrite error: %v", err)
	}
	got, _ = os.ReadFile(path)
	if string(got) != `{"v":2}` {
		t.Fatalf("after overwrite = %q", got)
	}

	// Временные файлы не остаются в каталоге.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("directory has %d entries, want only the target file", len(entries))
	}

	// Права итогового файла ограничены владельцем.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != storage.DefaultFilePerm {
		t.Fatalf("file mode = %o, want %o", perm, storage.DefaultFilePerm)
	}
}
