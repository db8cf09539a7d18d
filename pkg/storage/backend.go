package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo describes a local file taking part in a transfer
type FileInfo struct {
	Path         string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	RelativePath string
}

// Backend is the local side of a transfer: uploads are read from it and
// downloads are written into it
type Backend interface {
	// List returns every entry below path, recursively
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Read opens a file for an upload
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write stores a downloaded file. A negative size means unknown.
	// The file only appears at path once it is complete.
	Write(ctx context.Context, path string, reader io.Reader, size int64, modTime time.Time) (int64, error)

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Close releases any resources held by the backend
	Close() error
}
