package models

import (
	"sort"
)

// BatchCommand selects what a batch operation does
type BatchCommand string

const (
	// BatchDelete removes every selected file
	BatchDelete BatchCommand = "delete"
	// BatchMove moves every selected file into a target folder
	BatchMove BatchCommand = "move"
	// BatchShare shares every selected file
	BatchShare BatchCommand = "share"
)

// BatchRequest is one request applying a command to a set of files
type BatchRequest struct {
	Command        BatchCommand
	FileIDs        []ID
	TargetFolderID ID // only for BatchMove
}

// Validate checks the request before it is sent
func (r *BatchRequest) Validate() error {
	switch r.Command {
	case BatchDelete, BatchShare:
	case BatchMove:
		if r.TargetFolderID == "" {
			return &ValidationError{Field: "TargetFolderID", Message: "target folder is required for move"}
		}
	default:
		return &ValidationError{Field: "Command", Message: "unknown batch command: " + string(r.Command)}
	}
	if len(r.FileIDs) == 0 {
		return &ValidationError{Field: "FileIDs", Message: "at least one file is required"}
	}
	return nil
}

// Selection is the set of file ids chosen for a batch operation.
// Not safe for concurrent use.
type Selection struct {
	ids map[ID]struct{}
}

// NewSelection creates a selection holding ids
func NewSelection(ids ...ID) *Selection {
	s := &Selection{ids: make(map[ID]struct{}, len(ids))}
	s.Add(ids...)
	return s
}

// Add selects ids; empty ids are ignored
func (s *Selection) Add(ids ...ID) {
	if s.ids == nil {
		s.ids = make(map[ID]struct{})
	}
	for _, id := range ids {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
}

// Remove deselects ids
func (s *Selection) Remove(ids ...ID) {
	for _, id := range ids {
		delete(s.ids, id)
	}
}

// Contains reports whether id is selected
func (s *Selection) Contains(id ID) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids
func (s *Selection) Len() int {
	return len(s.ids)
}

// Clear empties the selection
func (s *Selection) Clear() {
	s.ids = make(map[ID]struct{})
}

// IDs returns the selected ids in sorted order
func (s *Selection) IDs() []ID {
	ids := make([]ID, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
