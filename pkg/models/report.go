package models

import (
	"time"
)

// OperationReport summarizes one CLI command run against the backend
type OperationReport struct {
	// Operation details
	OperationID string
	Command     string

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Items that were acted on (file ids, local paths)
	Items []ItemResult

	// Errors encountered
	Errors []OperationError

	// Bytes moved by uploads or downloads
	BytesTransferred int64

	// Overall status
	Status Status
}

// ItemResult records what happened to one item
type ItemResult struct {
	Name    string
	OK      bool
	Bytes   int64
	Message string
}

// Status represents the overall result
type Status string

const (
	// StatusSuccess indicates all operations completed successfully
	StatusSuccess Status = "success"
	// StatusPartial indicates some operations failed
	StatusPartial Status = "partial"
	// StatusFailed indicates the operation failed
	StatusFailed Status = "failed"
	// StatusCancelled indicates the operation was cancelled
	StatusCancelled Status = "cancelled"
)

// OperationError represents an error for one item
type OperationError struct {
	Item      string
	Error     string
	Timestamp time.Time
}

// AddItem appends an item result and records its error if any
func (r *OperationReport) AddItem(name string, bytes int64, err error) {
	item := ItemResult{Name: name, OK: err == nil, Bytes: bytes}
	if err != nil {
		item.Message = err.Error()
		r.Errors = append(r.Errors, OperationError{Item: name, Error: err.Error(), Timestamp: time.Now()})
	} else {
		r.BytesTransferred += bytes
	}
	r.Items = append(r.Items, item)
}

// Finish stamps the end time and derives the status from the items
// unless a status was already set
func (r *OperationReport) Finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	if r.Status != "" {
		return
	}

	failed := len(r.Errors)
	switch {
	case failed == 0:
		r.Status = StatusSuccess
	case failed < len(r.Items):
		r.Status = StatusPartial
	default:
		r.Status = StatusFailed
	}
}

// ExitCode returns the appropriate exit code for the status
func (s Status) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}
