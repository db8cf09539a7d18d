// Package manager holds the client-side view of a user's storage: the
// current listing, the folder tree, the folder being browsed and the batch
// selection. Operations gate on the session, confirm destructive actions,
// report notices and re-fetch listings after mutations.
package manager

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sdejongh/greenbox/pkg/api"
	"github.com/sdejongh/greenbox/pkg/logging"
	"github.com/sdejongh/greenbox/pkg/metrics"
	"github.com/sdejongh/greenbox/pkg/models"
	"github.com/sdejongh/greenbox/pkg/session"
	"github.com/sdejongh/greenbox/pkg/storage"
	"github.com/sdejongh/greenbox/pkg/transfer"
)

var (
	// ErrCancelled is returned when the user declines a confirmation
	ErrCancelled = errors.New("operation cancelled")
	// ErrEmptySelection is returned by batch operations with nothing selected
	ErrEmptySelection = errors.New("no files selected")
)

// Fetcher downloads the content behind a resolved link
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// Options configures a Manager. Remote and Sessions are required.
type Options struct {
	Remote     storage.Remote
	Sessions   *session.Store
	Confirmer  Confirmer // nil approves everything
	Notifier   Notifier  // nil discards notices
	Logger     logging.Logger
	Metrics    *metrics.Metrics
	StorageURL string
	Pool       *transfer.Pool // used by UploadFiles and Download
	Fetcher    Fetcher        // used by Download
}

// Manager is safe for concurrent use. Its mutex guards only its own fields
// and is never held across a request.
type Manager struct {
	remote     storage.Remote
	sessions   *session.Store
	confirmer  Confirmer
	notifier   Notifier
	logger     logging.Logger
	metrics    *metrics.Metrics
	storageURL string
	pool       *transfer.Pool
	fetcher    Fetcher

	mu        sync.Mutex
	files     []models.FileRecord
	tree      []*models.FolderNode
	folder    models.ID
	selection *models.Selection
}

// New creates a manager with an empty view
func New(opts Options) *Manager {
	m := &Manager{
		remote:     opts.Remote,
		sessions:   opts.Sessions,
		confirmer:  opts.Confirmer,
		notifier:   opts.Notifier,
		logger:     logging.OrNull(opts.Logger),
		metrics:    opts.Metrics,
		storageURL: opts.StorageURL,
		pool:       opts.Pool,
		fetcher:    opts.Fetcher,
		selection:  models.NewSelection(),
	}
	if m.confirmer == nil {
		m.confirmer = AutoConfirm
	}
	if m.notifier == nil {
		m.notifier = discardNotifier{}
	}
	if m.pool == nil {
		m.pool = transfer.NewPool(transfer.PoolConfig{Logger: opts.Logger})
	}
	return m
}

// Files returns a copy of the current listing
func (m *Manager) Files() []models.FileRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.FileRecord(nil), m.files...)
}

// File looks up a record in the current listing
func (m *Manager) File(id models.ID) (models.FileRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := models.FindFile(m.files, id); f != nil {
		return *f, true
	}
	return models.FileRecord{}, false
}

// Tree returns the last fetched folder forest. Nodes are shared and must
// not be modified.
func (m *Manager) Tree() []*models.FolderNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.FolderNode(nil), m.tree...)
}

// CurrentFolder returns the folder being browsed, empty for the root
func (m *Manager) CurrentFolder() models.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.folder
}

// Select adds ids to the batch selection
func (m *Manager) Select(ids ...models.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection.Add(ids...)
}

// Deselect removes ids from the batch selection
func (m *Manager) Deselect(ids ...models.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection.Remove(ids...)
}

// ClearSelection empties the batch selection
func (m *Manager) ClearSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection.Clear()
}

// Selection returns the selected ids in sorted order
func (m *Manager) Selection() []models.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection.IDs()
}

// DownloadURL resolves where a file can be fetched from. No request is made.
func (m *Manager) DownloadURL(file models.FileRecord) string {
	return file.DownloadURL(m.storageURL)
}

func (m *Manager) notify(level Level, msg string) {
	m.notifier.Notify(Notice{Level: level, Message: msg})
}

// fail reports err as an error notice and returns it
func (m *Manager) fail(err error, fallback string) error {
	m.notify(LevelError, api.MessageOf(err, fallback))
	return err
}

// session is the gate applied before any authenticated operation
func (m *Manager) session() (*session.Session, error) {
	sess := m.sessions.Current()
	if err := session.Require(sess); err != nil {
		return nil, m.fail(err, "please log in first")
	}
	return sess, nil
}

// selected returns the selection, failing with a warning when it is empty
func (m *Manager) selected() ([]models.ID, error) {
	ids := m.Selection()
	if len(ids) == 0 {
		m.notify(LevelWarning, "please select files first")
		return nil, ErrEmptySelection
	}
	return ids, nil
}

func (m *Manager) confirm(ctx context.Context, prompt string) error {
	ok, err := m.confirmer.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCancelled
	}
	return nil
}

// Refresh re-fetches the listing of the current folder and the folder tree,
// one request each, both always issued. A listing failure is reported and
// returned; a tree failure is only logged and the previous tree is kept.
func (m *Manager) Refresh(ctx context.Context) error {
	sess, err := m.session()
	if err != nil {
		return err
	}

	folder := m.CurrentFolder()
	files, listErr := m.list(ctx, sess, folder)

	tree, treeErr := m.remote.FolderTree(ctx, sess)
	if treeErr != nil {
		m.logger.Warn(ctx, "folder tree refresh failed", logging.Fields{"error": treeErr.Error()})
	}

	m.mu.Lock()
	if listErr == nil {
		m.files = files
	}
	if treeErr == nil {
		m.tree = tree
	}
	m.mu.Unlock()

	m.metrics.RecordRefresh()
	if listErr != nil {
		return m.fail(listErr, "failed to load files")
	}
	m.logger.Debug(ctx, "view refreshed", logging.Fields{"folder": folder.String(), "files": len(files)})
	return nil
}

func (m *Manager) list(ctx context.Context, sess *session.Session, folder models.ID) ([]models.FileRecord, error) {
	if folder == "" {
		return m.remote.ListFiles(ctx, sess)
	}
	return m.remote.ListFolderFiles(ctx, sess, folder)
}

// OpenFolder browses into folderID ("" for the root) and loads its listing.
// On failure the previous folder and listing are kept.
func (m *Manager) OpenFolder(ctx context.Context, folderID models.ID) error {
	sess, err := m.session()
	if err != nil {
		return err
	}

	files, err := m.list(ctx, sess, folderID)
	if err != nil {
		return m.fail(err, "failed to load files")
	}

	m.mu.Lock()
	m.folder = folderID
	m.files = files
	m.mu.Unlock()
	return nil
}

// afterMutation refreshes the view once a mutation has succeeded. A refresh
// failure has already been notified and does not fail the mutation.
func (m *Manager) afterMutation(ctx context.Context) {
	if err := m.Refresh(ctx); err != nil {
		m.logger.Warn(ctx, "refresh after mutation failed", logging.Fields{"error": err.Error()})
	}
}
