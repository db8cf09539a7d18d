package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/sdejongh/greenbox/pkg/models"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct{}

// JSONFileData represents one file of a listing
type JSONFileData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size,omitempty"`
	UpdateTime  string `json:"update_time,omitempty"`
	Path        string `json:"path,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// JSONFolderData represents a folder node
type JSONFolderData struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Children []JSONFolderData `json:"children,omitempty"`
}

// JSONSessionData represents the logged-in identity
type JSONSessionData struct {
	Username string `json:"username"`
	Nickname string `json:"nickname,omitempty"`
	ID       string `json:"id,omitempty"`
	Server   string `json:"server,omitempty"`
	SavedAt  string `json:"saved_at,omitempty"`
	Expires  string `json:"expires,omitempty"`
	Expired  bool   `json:"expired"`
}

// JSONReportData represents the final report data
type JSONReportData struct {
	OperationID      string          `json:"operation_id"`
	Command          string          `json:"command"`
	Status           string          `json:"status"`
	Duration         string          `json:"duration"`
	DurationMs       int64           `json:"duration_ms"`
	BytesTransferred int64           `json:"bytes_transferred"`
	Items            []JSONItemData  `json:"items"`
	Errors           []JSONErrorData `json:"errors,omitempty"`
}

// JSONItemData represents one item of a report
type JSONItemData struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Bytes   int64  `json:"bytes,omitempty"`
	Message string `json:"message,omitempty"`
}

// JSONErrorData represents an error entry
type JSONErrorData struct {
	Path  string `json:"path,omitempty"`
	Error string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Files encodes the listing as an array
func (f *JSONFormatter) Files(w io.Writer, files []models.FileRecord, storageURL string) error {
	out := make([]JSONFileData, 0, len(files))
	for _, file := range files {
		out = append(out, JSONFileData{
			ID:          file.ID.String(),
			Name:        file.Name,
			Size:        file.Size,
			UpdateTime:  file.UpdateTime,
			Path:        file.Path,
			DownloadURL: file.DownloadURL(storageURL),
		})
	}
	return encode(w, out)
}

// Tree encodes the folder forest
func (f *JSONFormatter) Tree(w io.Writer, roots []*models.FolderNode) error {
	return encode(w, folderData(roots))
}

func folderData(nodes []*models.FolderNode) []JSONFolderData {
	out := make([]JSONFolderData, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		out = append(out, JSONFolderData{
			ID:       n.Identifier().String(),
			Title:    n.Title,
			Children: folderData(n.Children),
		})
	}
	return out
}

// Session encodes the identity
func (f *JSONFormatter) Session(w io.Writer, info SessionInfo) error {
	data := JSONSessionData{
		Username: info.Username,
		Nickname: info.Nickname,
		ID:       info.ID.String(),
		Server:   info.Server,
		Expired:  info.Expired,
	}
	if !info.SavedAt.IsZero() {
		data.SavedAt = info.SavedAt.UTC().Format(time.RFC3339)
	}
	if !info.Expires.IsZero() {
		data.Expires = info.Expires.UTC().Format(time.RFC3339)
	}
	return encode(w, data)
}

// Report encodes the operation report
func (f *JSONFormatter) Report(w io.Writer, report *models.OperationReport) error {
	data := JSONReportData{
		OperationID:      report.OperationID,
		Command:          report.Command,
		Status:           string(report.Status),
		Duration:         report.Duration.String(),
		DurationMs:       report.Duration.Milliseconds(),
		BytesTransferred: report.BytesTransferred,
		Items:            make([]JSONItemData, 0, len(report.Items)),
	}
	for _, item := range report.Items {
		data.Items = append(data.Items, JSONItemData{Name: item.Name, OK: item.OK, Bytes: item.Bytes, Message: item.Message})
	}
	for _, e := range report.Errors {
		data.Errors = append(data.Errors, JSONErrorData{Path: e.Item, Error: e.Error})
	}
	return encode(w, data)
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
