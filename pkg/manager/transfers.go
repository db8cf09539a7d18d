package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sdejongh/greenbox/pkg/metrics"
	"github.com/sdejongh/greenbox/pkg/models"
	"github.com/sdejongh/greenbox/pkg/storage"
	"github.com/sdejongh/greenbox/pkg/transfer"
)

func newReport(command string) *models.OperationReport {
	return &models.OperationReport{
		OperationID: uuid.New().String(),
		Command:     command,
		StartTime:   time.Now(),
	}
}

// finish fills the report from the task outcomes
func finish(ctx context.Context, report *models.OperationReport, tasks []*transfer.Task) *models.OperationReport {
	for _, t := range tasks {
		report.AddItem(t.Label(), t.BytesTransferred, t.Error)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		report.Status = models.StatusCancelled
	}
	report.Finish()
	return report
}

func failedReport(report *models.OperationReport, err error) *models.OperationReport {
	report.Errors = append(report.Errors, models.OperationError{Error: err.Error(), Timestamp: time.Now()})
	report.Status = models.StatusFailed
	report.Finish()
	return report
}

// UploadFiles uploads tasks on the worker pool, each file one request, and
// refreshes the view once if at least one upload succeeded. An empty
// folderID uploads into the folder being browsed.
func (m *Manager) UploadFiles(ctx context.Context, tasks []*transfer.Task, folderID models.ID) *models.OperationReport {
	report := newReport("upload")

	sess, err := m.session()
	if err != nil {
		return failedReport(report, err)
	}
	if len(tasks) == 0 {
		m.notify(LevelWarning, "no files to upload")
		return failedReport(report, errors.New("no files to upload"))
	}
	if folderID == "" {
		folderID = m.CurrentFolder()
	}

	m.pool.Run(ctx, tasks, func(ctx context.Context, task *transfer.Task, wrap func(io.Reader) io.Reader) (int64, error) {
		rc, err := task.Local.Read(ctx, task.RelativePath)
		if err != nil {
			return 0, err
		}
		defer rc.Close()

		counter := &countingReader{r: wrap(rc)}
		err = m.remote.Upload(ctx, sess, storage.UploadRequest{
			Name:     task.Name,
			Content:  counter,
			Size:     task.Size,
			FolderID: folderID,
		})
		if err != nil {
			return counter.n.Load(), err
		}
		sent := counter.n.Load()
		m.metrics.RecordTransfer(metrics.DirectionUpload, sent)
		return sent, nil
	})

	report = finish(ctx, report, tasks)
	succeeded := len(report.Items) - len(report.Errors)

	switch {
	case succeeded == len(tasks):
		m.notify(LevelSuccess, fmt.Sprintf("%d files uploaded", succeeded))
	case succeeded > 0:
		m.notify(LevelWarning, fmt.Sprintf("%d of %d files uploaded", succeeded, len(tasks)))
	default:
		m.notify(LevelError, "upload failed")
	}

	if succeeded > 0 {
		m.afterMutation(ctx)
	}
	return report
}

// Download fetches files into dest, each under its remote name. No session
// is needed: links are resolved locally and fetched as-is.
func (m *Manager) Download(ctx context.Context, files []models.FileRecord, dest storage.Backend) *models.OperationReport {
	report := newReport("download")
	if m.fetcher == nil {
		return failedReport(report, errors.New("downloads are not configured"))
	}
	if len(files) == 0 {
		m.notify(LevelWarning, "please select files first")
		return failedReport(report, ErrEmptySelection)
	}

	tasks := make([]*transfer.Task, len(files))
	for i, f := range files {
		name := localName(f)
		task := transfer.NewTask(name, name, dest, -1)
		if f.Size > 0 {
			task.Size = f.Size
		}
		task.RemoteID = f.ID.String()
		task.URL = m.DownloadURL(f)
		task.ModTime = parseUpdateTime(f.UpdateTime)
		tasks[i] = task
	}

	m.pool.Run(ctx, tasks, func(ctx context.Context, task *transfer.Task, wrap func(io.Reader) io.Reader) (int64, error) {
		if task.URL == "" {
			return 0, fmt.Errorf("no download link for %s", task.Name)
		}
		body, size, err := m.fetcher.Fetch(ctx, task.URL)
		if err != nil {
			return 0, err
		}
		defer body.Close()

		n, err := task.Local.Write(ctx, task.RelativePath, wrap(body), size, task.ModTime)
		if n > 0 {
			m.metrics.RecordTransfer(metrics.DirectionDownload, n)
		}
		return n, err
	})

	report = finish(ctx, report, tasks)
	if len(report.Errors) == 0 {
		m.notify(LevelSuccess, fmt.Sprintf("%d files downloaded", len(tasks)))
	} else {
		m.notify(LevelError, fmt.Sprintf("%d of %d downloads failed", len(report.Errors), len(tasks)))
	}
	return report
}

// DownloadSelection downloads the selected files found in the listing
func (m *Manager) DownloadSelection(ctx context.Context, dest storage.Backend) *models.OperationReport {
	ids := m.Selection()
	files := make([]models.FileRecord, 0, len(ids))
	for _, id := range ids {
		if f, ok := m.File(id); ok {
			files = append(files, f)
		}
	}
	return m.Download(ctx, files, dest)
}

var updateTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

// parseUpdateTime reads the backend's updateTime; unknown formats yield zero
func parseUpdateTime(s string) time.Time {
	for _, layout := range updateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// countingReader is read by the multipart writer goroutine while the
// request is in flight, hence the atomic
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// localName is the file name a download is stored under
func localName(f models.FileRecord) string {
	name := filepath.Base(filepath.FromSlash(f.Name))
	if name == "." || name == string(filepath.Separator) || name == ".." {
		return "file-" + f.ID.String()
	}
	return name
}
