package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FileRecord is a file as reported by a listing request.
// It is a read-only snapshot: mutations are never applied locally,
// the listing is fetched again instead.
type FileRecord struct {
	// ID identifies the file on the backend
	ID ID `json:"id"`

	// Name is the display name
	Name string `json:"name"`

	// Size in bytes (0 when the backend does not report it)
	Size int64 `json:"size,omitempty"`

	// SizeText keeps a size the backend sent as non-numeric text, e.g. "1.2MB"
	SizeText string `json:"sizeText,omitempty"`

	// UpdateTime is the backend-formatted modification time
	UpdateTime string `json:"updateTime,omitempty"`

	// Path is the object path relative to the storage URL
	Path string `json:"path,omitempty"`

	// URL is an absolute download link, preferred over Path when set
	URL string `json:"url,omitempty"`
}

// UnmarshalJSON decodes a record whose size may be a number, a numeric
// string or free text. Free text is kept in SizeText.
func (f *FileRecord) UnmarshalJSON(data []byte) error {
	type plain FileRecord
	var raw struct {
		plain
		Size json.RawMessage `json:"size"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = FileRecord(raw.plain)
	f.Size, f.SizeText = decodeSize(raw.Size)
	return nil
}

func decodeSize(data json.RawMessage) (int64, string) {
	if len(data) == 0 || string(data) == "null" {
		return 0, ""
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return v, ""
		}
		if v, err := n.Float64(); err == nil {
			return int64(v), ""
		}
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, string(data)
	}
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, ""
	}
	return 0, s
}

// DownloadURL resolves the link a browser would follow to fetch the file.
// No request is issued.
func (f FileRecord) DownloadURL(storageURL string) string {
	if f.URL != "" {
		return f.URL
	}
	return strings.TrimRight(storageURL, "/") + "/" + strings.TrimLeft(f.Path, "/")
}

// FindFile returns the record with the given id, or nil
func FindFile(files []FileRecord, id ID) *FileRecord {
	for i := range files {
		if files[i].ID == id {
			return &files[i]
		}
	}
	return nil
}

// FolderNode is one folder of the navigation tree
type FolderNode struct {
	ID       ID            `json:"id,omitempty"`
	Key      ID            `json:"key,omitempty"`
	Title    string        `json:"title"`
	Children []*FolderNode `json:"children,omitempty"`
}

// Identifier returns the id, falling back to the tree key
func (n *FolderNode) Identifier() ID {
	if n.ID != "" {
		return n.ID
	}
	return n.Key
}

// FindFolder searches a forest depth-first for a folder id
func FindFolder(roots []*FolderNode, id ID) *FolderNode {
	for _, root := range roots {
		if root == nil {
			continue
		}
		if root.Identifier() == id {
			return root
		}
		if found := FindFolder(root.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// CountFolders counts all nodes in a forest
func CountFolders(roots []*FolderNode) int {
	count := 0
	for _, root := range roots {
		if root == nil {
			continue
		}
		count += 1 + CountFolders(root.Children)
	}
	return count
}

// WalkFolders visits every node with its depth, parents first
func WalkFolders(roots []*FolderNode, fn func(node *FolderNode, depth int)) {
	walkFolders(roots, 0, fn)
}

func walkFolders(nodes []*FolderNode, depth int, fn func(node *FolderNode, depth int)) {
	for _, node := range nodes {
		if node == nil {
			continue
		}
		fn(node, depth)
		walkFolders(node.Children, depth+1, fn)
	}
}
