package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

func newTestLocal(t *testing.T) (*Local, string) {
	t.Helper()
	dir := t.TempDir()
	local, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	t.Cleanup(func() { local.Close() })
	return local, dir
}

// TestNewLocal tests the Local backend constructor
func TestNewLocal(t *testing.T) {
	t.Run("ValidDirectory", func(t *testing.T) {
		local, dir := newTestLocal(t)
		abs, _ := filepath.Abs(dir)
		if local.Root() != abs {
			t.Errorf("Root() = %v, want %v", local.Root(), abs)
		}
	})

	t.Run("NonExistentPath", func(t *testing.T) {
		if _, err := NewLocal("/nonexistent/path/that/does/not/exist"); err == nil {
			t.Error("NewLocal() should fail for non-existent path")
		}
	})

	t.Run("FileNotDirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file.txt")
		os.WriteFile(file, []byte("x"), 0644)

		if _, err := NewLocal(file); err == nil {
			t.Error("NewLocal() should fail for file path (not directory)")
		}
	})
}

func TestLocalList(t *testing.T) {
	local, dir := newTestLocal(t)
	os.MkdirAll(filepath.Join(dir, "photos", "2024"), 0755)
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("aaa"), 0644)
	os.WriteFile(filepath.Join(dir, "photos", "2024", "b.jpg"), []byte("bb"), 0644)

	entries, err := local.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir {
			files = append(files, filepath.ToSlash(e.RelativePath))
		}
	}
	sort.Strings(files)
	want := []string{"a.txt", "photos/2024/b.jpg"}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Errorf("files = %v, want %v", files, want)
	}

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := local.List(ctx, ""); !errors.Is(err, context.Canceled) {
			t.Errorf("List() error = %v, want context.Canceled", err)
		}
	})

	t.Run("Escape", func(t *testing.T) {
		if _, err := local.List(context.Background(), "../.."); err == nil {
			t.Error("List() should refuse paths outside the root")
		}
	})
}

func TestLocalRead(t *testing.T) {
	local, dir := newTestLocal(t)
	os.WriteFile(filepath.Join(dir, "read.txt"), []byte("hello"), 0644)

	rc, err := local.Read(context.Background(), "read.txt")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "hello" {
		t.Errorf("content = %q, want %q", data, "hello")
	}

	if _, err := local.Read(context.Background(), "missing.txt"); err == nil {
		t.Error("Read() should fail for a missing file")
	}
}

func TestLocalWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("NestedWithModTime", func(t *testing.T) {
		local, dir := newTestLocal(t)
		content := []byte("downloaded content")
		modTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		n, err := local.Write(ctx, "sub/file.txt", bytes.NewReader(content), int64(len(content)), modTime)
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != int64(len(content)) {
			t.Errorf("written = %d, want %d", n, len(content))
		}

		info, err := os.Stat(filepath.Join(dir, "sub", "file.txt"))
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if !info.ModTime().Equal(modTime) {
			t.Errorf("ModTime = %v, want %v", info.ModTime(), modTime)
		}
	})

	t.Run("UnknownSize", func(t *testing.T) {
		local, dir := newTestLocal(t)
		if _, err := local.Write(ctx, "x.bin", strings.NewReader("abc"), -1, time.Time{}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		data, _ := os.ReadFile(filepath.Join(dir, "x.bin"))
		if string(data) != "abc" {
			t.Errorf("content = %q", data)
		}
	})

	t.Run("ShortWriteLeavesNothing", func(t *testing.T) {
		local, dir := newTestLocal(t)
		if _, err := local.Write(ctx, "short.bin", strings.NewReader("abc"), 10, time.Time{}); err == nil {
			t.Fatal("Write() should fail when fewer bytes than expected arrive")
		}

		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("directory should be empty, found %d entries", len(entries))
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		local, dir := newTestLocal(t)
		local.Write(ctx, "o.txt", strings.NewReader("first"), 5, time.Time{})
		local.Write(ctx, "o.txt", strings.NewReader("second"), 6, time.Time{})

		data, _ := os.ReadFile(filepath.Join(dir, "o.txt"))
		if string(data) != "second" {
			t.Errorf("content = %q, want %q", data, "second")
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		local, _ := newTestLocal(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := local.Write(cctx, "c.txt", strings.NewReader("data"), 4, time.Time{}); !errors.Is(err, context.Canceled) {
			t.Errorf("Write() error = %v, want context.Canceled", err)
		}
	})
}

func TestLocalStatMkdir(t *testing.T) {
	local, dir := newTestLocal(t)
	ctx := context.Background()

	if err := local.MkdirAll(ctx, "a/b/c"); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	os.WriteFile(filepath.Join(dir, "a", "b", "c", "f.txt"), []byte("12345"), 0644)

	if err := local.MkdirAll(ctx, "../outside"); err == nil {
		t.Error("MkdirAll() should refuse paths outside the root")
	}

	info, err := local.Stat(ctx, "a/b/c/f.txt")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size != 5 || info.IsDir || filepath.ToSlash(info.RelativePath) != "a/b/c/f.txt" {
		t.Errorf("Stat() = %+v", info)
	}
	if _, err := local.Stat(ctx, "nope"); err == nil {
		t.Error("Stat() should fail for a missing path")
	}
}

func TestCreateLocal(t *testing.T) {
	root := filepath.Join(t.TempDir(), "downloads", "2024")

	local, err := CreateLocal(context.Background(), root)
	if err != nil {
		t.Fatalf("CreateLocal() error = %v", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
	if local.Root() != root {
		t.Errorf("Root() = %v, want %v", local.Root(), root)
	}

	again, err := CreateLocal(context.Background(), root)
	if err != nil || again.Root() != root {
		t.Errorf("CreateLocal() on an existing dir = %v, %v", again, err)
	}
}

func TestBackendInterface(t *testing.T) {
	var _ Backend = (*Local)(nil)
}
