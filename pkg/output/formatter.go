// Package output renders listings, trees, sessions and operation reports
// for the terminal (human) or for scripts (json), and shows transfer
// progress and notices.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/sdejongh/greenbox/pkg/models"
)

// SessionInfo is what whoami displays
type SessionInfo struct {
	Username string
	Nickname string
	ID       models.ID
	Server   string
	SavedAt  time.Time
	Expires  time.Time // zero when the token carries no expiry
	Expired  bool
}

// Formatter defines the interface for output formatting
// Implementations include human-readable and JSON formatters
type Formatter interface {
	// Files prints a listing; storageURL resolves download links
	Files(w io.Writer, files []models.FileRecord, storageURL string) error

	// Tree prints the folder forest
	Tree(w io.Writer, roots []*models.FolderNode) error

	// Session prints the logged-in identity
	Session(w io.Writer, info SessionInfo) error

	// Report prints the outcome of a command
	Report(w io.Writer, report *models.OperationReport) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter for "human" or "json"
func New(format string) (Formatter, error) {
	switch format {
	case "", "human":
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (valid: human, json)", format)
	}
}
