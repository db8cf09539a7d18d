// Package storage holds both sides of a transfer: the remote backend's file
// operations and the local filesystem that uploads are read from and
// downloads are written to.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/sdejongh/greenbox/pkg/api"
	"github.com/sdejongh/greenbox/pkg/logging"
	"github.com/sdejongh/greenbox/pkg/models"
	"github.com/sdejongh/greenbox/pkg/session"
)

// Remote is the set of file operations the backend offers. Every call is one
// independent request authorized by sess; nothing is retried.
type Remote interface {
	ListFiles(ctx context.Context, sess *session.Session) ([]models.FileRecord, error)
	ListFolderFiles(ctx context.Context, sess *session.Session, folderID models.ID) ([]models.FileRecord, error)
	FolderTree(ctx context.Context, sess *session.Session) ([]*models.FolderNode, error)
	Upload(ctx context.Context, sess *session.Session, req UploadRequest) error
	Delete(ctx context.Context, sess *session.Session, fileID models.ID) error
	Move(ctx context.Context, sess *session.Session, fileID, targetFolderID models.ID) error
	Share(ctx context.Context, sess *session.Session, fileID models.ID) (string, error)
	Batch(ctx context.Context, sess *session.Session, req models.BatchRequest) error
}

// UploadRequest is one file to upload
type UploadRequest struct {
	Name     string
	Content  io.Reader
	Size     int64
	FolderID models.ID // empty uploads to the root
}

// Doer sends one backend request
type Doer interface {
	Do(ctx context.Context, req api.Request, out any) error
}

// HTTPRemote implements Remote against the backend's JSON API
type HTTPRemote struct {
	doer      Doer
	endpoints api.Endpoints
	logger    logging.Logger
}

// NewHTTPRemote creates a remote using doer for transport
func NewHTTPRemote(doer Doer, endpoints api.Endpoints, logger logging.Logger) *HTTPRemote {
	return &HTTPRemote{
		doer:      doer,
		endpoints: endpoints.WithDefaults(),
		logger:    logging.OrNull(logger),
	}
}

type userBody struct {
	Username string `json:"username"`
}

type folderFilesBody struct {
	FolderID models.ID `json:"folderId"`
	Username string    `json:"username"`
}

type dealFileBody struct {
	Cmd      string    `json:"cmd"`
	FileID   models.ID `json:"fileId"`
	Username string    `json:"username"`
}

type fileBody struct {
	FileID   models.ID `json:"fileId"`
	Username string    `json:"username"`
}

type moveBody struct {
	FileID         models.ID `json:"fileId"`
	TargetFolderID models.ID `json:"targetFolderId"`
	Username       string    `json:"username"`
}

type batchBody struct {
	Cmd            models.BatchCommand `json:"cmd"`
	FileIDs        []models.ID         `json:"fileIds"`
	TargetFolderID models.ID           `json:"targetFolderId,omitempty"`
	Username       string              `json:"username"`
}

// ListFiles returns the files at the root of the user's storage
func (r *HTTPRemote) ListFiles(ctx context.Context, sess *session.Session) ([]models.FileRecord, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	return r.list(ctx, sess, r.endpoints.MyFiles, userBody{Username: sess.Username})
}

// ListFolderFiles returns the files inside one folder
func (r *HTTPRemote) ListFolderFiles(ctx context.Context, sess *session.Session, folderID models.ID) ([]models.FileRecord, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	return r.list(ctx, sess, r.endpoints.FolderFiles, folderFilesBody{FolderID: folderID, Username: sess.Username})
}

func (r *HTTPRemote) list(ctx context.Context, sess *session.Session, endpoint string, body any) ([]models.FileRecord, error) {
	var raw json.RawMessage
	if err := r.doer.Do(ctx, api.Request{Endpoint: endpoint, Token: sess.Token, JSON: body}, &raw); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	files, err := decodeFileList(raw)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	r.logger.Debug(ctx, "files listed", logging.Fields{"endpoint": endpoint, "count": len(files)})
	return files, nil
}

// decodeFileList accepts a bare array or an envelope carrying the array
// under "data" or "files"
func decodeFileList(raw json.RawMessage) ([]models.FileRecord, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []models.FileRecord{}, nil
	}

	if raw[0] == '[' {
		var files []models.FileRecord
		if err := json.Unmarshal(raw, &files); err != nil {
			return nil, fmt.Errorf("decode file list: %w", err)
		}
		return files, nil
	}

	var wrapped struct {
		api.Envelope
		Data  []models.FileRecord `json:"data"`
		Files []models.FileRecord `json:"files"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}
	if err := wrapped.Err("failed to load files"); err != nil {
		return nil, err
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	if wrapped.Files != nil {
		return wrapped.Files, nil
	}
	return []models.FileRecord{}, nil
}

// FolderTree returns the user's folder forest
func (r *HTTPRemote) FolderTree(ctx context.Context, sess *session.Session) ([]*models.FolderNode, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}

	var resp struct {
		api.Envelope
		Data []*models.FolderNode `json:"data"`
	}
	if err := r.doer.Do(ctx, api.Request{
		Endpoint: r.endpoints.Folders,
		Token:    sess.Token,
		JSON:     userBody{Username: sess.Username},
	}, &resp); err != nil {
		return nil, fmt.Errorf("folder tree: %w", err)
	}
	if err := resp.Err("failed to load folders"); err != nil {
		return nil, fmt.Errorf("folder tree: %w", err)
	}
	if resp.Data == nil {
		return []*models.FolderNode{}, nil
	}
	return resp.Data, nil
}

// Upload sends one file as multipart/form-data
func (r *HTTPRemote) Upload(ctx context.Context, sess *session.Session, req UploadRequest) error {
	if err := session.Require(sess); err != nil {
		return err
	}
	if req.Name == "" {
		return &models.ValidationError{Field: "Name", Message: "file name is required"}
	}

	fields := map[string]string{"username": sess.Username}
	if req.FolderID != "" {
		fields["folderId"] = req.FolderID.String()
	}

	var resp api.Envelope
	if err := r.doer.Do(ctx, api.Request{
		Endpoint: r.endpoints.Upload,
		Token:    sess.Token,
		Multipart: &api.MultipartBody{
			Fields:   fields,
			FileName: req.Name,
			Content:  req.Content,
		},
	}, &resp); err != nil {
		return fmt.Errorf("upload %s: %w", req.Name, err)
	}
	if err := resp.Err("upload failed"); err != nil {
		return fmt.Errorf("upload %s: %w", req.Name, err)
	}

	r.logger.Info(ctx, "file uploaded", logging.Fields{"name": req.Name, "size": req.Size, "folder": req.FolderID.String()})
	return nil
}

// Delete removes one file
func (r *HTTPRemote) Delete(ctx context.Context, sess *session.Session, fileID models.ID) error {
	if err := session.Require(sess); err != nil {
		return err
	}
	return r.ack(ctx, sess, "delete", api.Request{
		Endpoint: r.endpoints.DealFile,
		JSON:     dealFileBody{Cmd: "del", FileID: fileID, Username: sess.Username},
	}, "delete failed")
}

// Move moves one file into a folder
func (r *HTTPRemote) Move(ctx context.Context, sess *session.Session, fileID, targetFolderID models.ID) error {
	if err := session.Require(sess); err != nil {
		return err
	}
	if targetFolderID == "" {
		return &models.ValidationError{Field: "TargetFolderID", Message: "target folder is required for move"}
	}
	return r.ack(ctx, sess, "move", api.Request{
		Endpoint: r.endpoints.FileMove,
		Query:    url.Values{"cmd": {"single"}},
		JSON:     moveBody{FileID: fileID, TargetFolderID: targetFolderID, Username: sess.Username},
	}, "move failed")
}

// Share shares one file and returns the server's message
func (r *HTTPRemote) Share(ctx context.Context, sess *session.Session, fileID models.ID) (string, error) {
	if err := session.Require(sess); err != nil {
		return "", err
	}

	var resp api.Envelope
	if err := r.doer.Do(ctx, api.Request{
		Endpoint: r.endpoints.ShareFiles,
		Token:    sess.Token,
		JSON:     fileBody{FileID: fileID, Username: sess.Username},
	}, &resp); err != nil {
		return "", fmt.Errorf("share: %w", err)
	}
	if err := resp.Err("share failed"); err != nil {
		return "", fmt.Errorf("share: %w", err)
	}
	return resp.Text(), nil
}

// Batch applies one command to many files in a single request
func (r *HTTPRemote) Batch(ctx context.Context, sess *session.Session, req models.BatchRequest) error {
	if err := session.Require(sess); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	body := batchBody{Cmd: req.Command, FileIDs: req.FileIDs, Username: sess.Username}
	if req.Command == models.BatchMove {
		body.TargetFolderID = req.TargetFolderID
	}
	return r.ack(ctx, sess, "batch "+string(req.Command), api.Request{
		Endpoint: r.endpoints.BatchOperation,
		JSON:     body,
	}, "batch "+string(req.Command)+" failed")
}

// ack sends a request whose response is a bare {code, msg}
func (r *HTTPRemote) ack(ctx context.Context, sess *session.Session, op string, req api.Request, fallback string) error {
	req.Token = sess.Token

	var resp api.Envelope
	if err := r.doer.Do(ctx, req, &resp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := resp.Err(fallback); err != nil {
		r.logger.Warn(ctx, "operation rejected", logging.Fields{"op": op, "code": resp.Code})
		return fmt.Errorf("%s: %w", op, err)
	}
	r.logger.Info(ctx, "operation completed", logging.Fields{"op": op})
	return nil
}
