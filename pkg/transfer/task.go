// Package transfer runs uploads and downloads on a bounded worker pool with
// shared bandwidth limiting and progress events.
package transfer

import (
	"time"

	"github.com/sdejongh/greenbox/pkg/storage"
)

// TaskStatus represents the state of a transfer task
type TaskStatus string

const (
	// TaskPending indicates the task is waiting for a worker
	TaskPending TaskStatus = "pending"
	// TaskProcessing indicates a worker is transferring the file
	TaskProcessing TaskStatus = "processing"
	// TaskCompleted indicates the transfer succeeded
	TaskCompleted TaskStatus = "completed"
	// TaskError indicates the transfer failed
	TaskError TaskStatus = "error"
)

// Task is one file to transfer
type Task struct {
	// Name is the file name on the remote side
	Name string

	// RelativePath locates the file inside Local
	RelativePath string

	// Local is the filesystem side of the transfer
	Local storage.Backend

	// Size is the expected size, -1 when unknown
	Size int64

	ModTime time.Time

	// RemoteID identifies the remote file for downloads
	RemoteID string

	// URL is the download source
	URL string

	Status           TaskStatus
	Error            error
	BytesTransferred int64
	Duration         time.Duration
	WorkerID         int
}

// NewTask creates a pending task
func NewTask(name, relativePath string, local storage.Backend, size int64) *Task {
	return &Task{
		Name:         name,
		RelativePath: relativePath,
		Local:        local,
		Size:         size,
		Status:       TaskPending,
	}
}

// MarkProcessing marks the task as taken by a worker
func (t *Task) MarkProcessing(workerID int) {
	t.Status = TaskProcessing
	t.WorkerID = workerID
}

// MarkCompleted marks the task as successfully completed
func (t *Task) MarkCompleted(bytesTransferred int64, duration time.Duration) {
	t.Status = TaskCompleted
	t.BytesTransferred = bytesTransferred
	t.Duration = duration
}

// MarkError marks the task as failed
func (t *Task) MarkError(err error, duration time.Duration) {
	t.Status = TaskError
	t.Error = err
	t.Duration = duration
}

// Label returns the name shown in reports
func (t *Task) Label() string {
	if t.RelativePath != "" {
		return t.RelativePath
	}
	return t.Name
}
