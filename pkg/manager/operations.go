package manager

import (
	"context"
	"fmt"

	"github.com/sdejongh/greenbox/pkg/logging"
	"github.com/sdejongh/greenbox/pkg/metrics"
	"github.com/sdejongh/greenbox/pkg/models"
	"github.com/sdejongh/greenbox/pkg/storage"
)

// Upload sends one file and refreshes the view. An empty FolderID uploads
// into the folder being browsed.
func (m *Manager) Upload(ctx context.Context, req storage.UploadRequest) error {
	sess, err := m.session()
	if err != nil {
		return err
	}
	if req.FolderID == "" {
		req.FolderID = m.CurrentFolder()
	}

	if err := m.remote.Upload(ctx, sess, req); err != nil {
		return m.fail(err, "upload failed")
	}
	if req.Size > 0 {
		m.metrics.RecordTransfer(metrics.DirectionUpload, req.Size)
	}

	m.notify(LevelSuccess, fmt.Sprintf("%s uploaded", req.Name))
	m.afterMutation(ctx)
	return nil
}

// Delete removes one file after confirmation and refreshes the view
func (m *Manager) Delete(ctx context.Context, fileID models.ID) error {
	sess, err := m.session()
	if err != nil {
		return err
	}
	if err := m.confirm(ctx, fmt.Sprintf("Delete %s?", m.describe(fileID))); err != nil {
		return err
	}

	if err := m.remote.Delete(ctx, sess, fileID); err != nil {
		return m.fail(err, "delete failed")
	}

	m.notify(LevelSuccess, "file deleted")
	m.afterMutation(ctx)
	return nil
}

// Move moves one file into targetFolderID and refreshes the view
func (m *Manager) Move(ctx context.Context, fileID, targetFolderID models.ID) error {
	sess, err := m.session()
	if err != nil {
		return err
	}

	if err := m.remote.Move(ctx, sess, fileID, targetFolderID); err != nil {
		return m.fail(err, "move failed")
	}

	m.notify(LevelSuccess, "file moved")
	m.afterMutation(ctx)
	return nil
}

// Share shares one file and returns the server's message. Listings are not
// affected, so nothing is re-fetched.
func (m *Manager) Share(ctx context.Context, fileID models.ID) (string, error) {
	sess, err := m.session()
	if err != nil {
		return "", err
	}

	msg, err := m.remote.Share(ctx, sess, fileID)
	if err != nil {
		return "", m.fail(err, "share failed")
	}

	if msg == "" {
		msg = "file shared"
	}
	m.notify(LevelSuccess, msg)
	return msg, nil
}

// BatchDelete deletes every selected file after confirmation
func (m *Manager) BatchDelete(ctx context.Context) error {
	return m.batch(ctx, models.BatchDelete, "")
}

// BatchMove moves every selected file into targetFolderID after confirmation
func (m *Manager) BatchMove(ctx context.Context, targetFolderID models.ID) error {
	return m.batch(ctx, models.BatchMove, targetFolderID)
}

// BatchShare shares every selected file
func (m *Manager) BatchShare(ctx context.Context) error {
	return m.batch(ctx, models.BatchShare, "")
}

func (m *Manager) batch(ctx context.Context, cmd models.BatchCommand, target models.ID) error {
	sess, err := m.session()
	if err != nil {
		return err
	}
	ids, err := m.selected()
	if err != nil {
		return err
	}

	req := models.BatchRequest{Command: cmd, FileIDs: ids, TargetFolderID: target}
	if err := req.Validate(); err != nil {
		return m.fail(err, err.Error())
	}

	switch cmd {
	case models.BatchDelete:
		err = m.confirm(ctx, fmt.Sprintf("Delete %d selected files?", len(ids)))
	case models.BatchMove:
		err = m.confirm(ctx, fmt.Sprintf("Move %d selected files?", len(ids)))
	}
	if err != nil {
		return err
	}

	if err := m.remote.Batch(ctx, sess, req); err != nil {
		return m.fail(err, fmt.Sprintf("batch %s failed", cmd))
	}

	m.ClearSelection()
	m.logger.Info(ctx, "batch operation completed", logging.Fields{"cmd": string(cmd), "files": len(ids)})
	m.notify(LevelSuccess, batchDone(cmd, len(ids)))

	if cmd != models.BatchShare {
		m.afterMutation(ctx)
	}
	return nil
}

func batchDone(cmd models.BatchCommand, n int) string {
	switch cmd {
	case models.BatchDelete:
		return fmt.Sprintf("%d files deleted", n)
	case models.BatchMove:
		return fmt.Sprintf("%d files moved", n)
	default:
		return fmt.Sprintf("%d files shared", n)
	}
}

// describe names a file for prompts, using the listing when possible
func (m *Manager) describe(id models.ID) string {
	if f, ok := m.File(id); ok && f.Name != "" {
		return f.Name
	}
	return "file " + id.String()
}
