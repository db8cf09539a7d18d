package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local is a filesystem backend rooted at a directory. Paths passed to its
// methods are relative to the root and may not escape it.
type Local struct {
	rootPath string
}

// NewLocal creates a new local filesystem backend
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return &Local{rootPath: absPath}, nil
}

// CreateLocal is NewLocal for a root that is created when missing
func CreateLocal(ctx context.Context, rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	parent := &Local{rootPath: filepath.Dir(absPath)}
	if err := parent.MkdirAll(ctx, filepath.Base(absPath)); err != nil {
		return nil, err
	}
	return NewLocal(absPath)
}

// Root returns the absolute root directory
func (l *Local) Root() string {
	return l.rootPath
}

// resolve joins path to the root, refusing paths that leave it
func (l *Local) resolve(path string) (string, error) {
	full := filepath.Join(l.rootPath, path)
	rel, err := filepath.Rel(l.rootPath, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes %s: %s", l.rootPath, path)
	}
	return full, nil
}

func (l *Local) info(full string, fi fs.FileInfo) (FileInfo, error) {
	rel, err := filepath.Rel(l.rootPath, full)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Path:         full,
		Size:         fi.Size(),
		ModTime:      fi.ModTime(),
		IsDir:        fi.IsDir(),
		RelativePath: rel,
	}, nil
}

// List returns all entries below path recursively, path itself included
func (l *Local) List(ctx context.Context, path string) ([]FileInfo, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	var files []FileInfo

	err = filepath.WalkDir(fullPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		entry, err := l.info(p, fi)
		if err != nil {
			return err
		}
		files = append(files, entry)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Write copies reader into a temporary file next to path and renames it
// into place once complete
func (l *Local) Write(ctx context.Context, path string, reader io.Reader, size int64, modTime time.Time) (int64, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	written, err := io.Copy(tmp, &contextReader{ctx: ctx, r: reader})
	if err != nil {
		return written, fmt.Errorf("failed to write file: %w", err)
	}
	if size >= 0 && written != size {
		return written, fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}
	if err := tmp.Close(); err != nil {
		return written, fmt.Errorf("failed to close file: %w", err)
	}

	if !modTime.IsZero() {
		if err := os.Chtimes(tmpName, modTime, modTime); err != nil {
			return written, fmt.Errorf("failed to set modification time: %w", err)
		}
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		return written, fmt.Errorf("failed to finalize file: %w", err)
	}
	committed = true

	return written, nil
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	entry, err := l.info(fullPath, fi)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	fullPath, err := l.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(fullPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
