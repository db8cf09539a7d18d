package manager

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sdejongh/greenbox/pkg/api"
	"github.com/sdejongh/greenbox/pkg/metrics"
	"github.com/sdejongh/greenbox/pkg/models"
	"github.com/sdejongh/greenbox/pkg/session"
	"github.com/sdejongh/greenbox/pkg/storage"
	"github.com/sdejongh/greenbox/pkg/transfer"
)

// fakeRemote counts calls and returns canned results
type fakeRemote struct {
	mu       sync.Mutex
	calls    map[string]int
	files    []models.FileRecord
	tree     []*models.FolderNode
	errs     map[string]error
	shareMsg string
	batches  []models.BatchRequest
	uploads  map[string]string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		calls:   map[string]int{},
		errs:    map[string]error{},
		uploads: map[string]string{},
		files: []models.FileRecord{
			{ID: "f1", Name: "a.txt", Path: "alice/a.txt"},
			{ID: "f2", Name: "b.txt", URL: "http://cdn/b.txt"},
		},
		tree: []*models.FolderNode{{Key: "d1", Title: "docs"}},
	}
}

func (r *fakeRemote) hit(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
	return r.errs[op]
}

func (r *fakeRemote) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *fakeRemote) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func (r *fakeRemote) ListFiles(ctx context.Context, sess *session.Session) ([]models.FileRecord, error) {
	if err := r.hit("list"); err != nil {
		return nil, err
	}
	return r.files, nil
}

func (r *fakeRemote) ListFolderFiles(ctx context.Context, sess *session.Session, folderID models.ID) ([]models.FileRecord, error) {
	if err := r.hit("folderfiles"); err != nil {
		return nil, err
	}
	return []models.FileRecord{{ID: "f9", Name: "in-" + folderID.String()}}, nil
}

func (r *fakeRemote) FolderTree(ctx context.Context, sess *session.Session) ([]*models.FolderNode, error) {
	if err := r.hit("tree"); err != nil {
		return nil, err
	}
	return r.tree, nil
}

func (r *fakeRemote) Upload(ctx context.Context, sess *session.Session, req storage.UploadRequest) error {
	data, _ := io.ReadAll(req.Content)
	if err := r.hit("upload"); err != nil {
		return err
	}
	r.mu.Lock()
	r.uploads[req.Name] = string(data)
	r.mu.Unlock()
	return nil
}

func (r *fakeRemote) Delete(ctx context.Context, sess *session.Session, fileID models.ID) error {
	return r.hit("delete")
}

func (r *fakeRemote) Move(ctx context.Context, sess *session.Session, fileID, target models.ID) error {
	return r.hit("move")
}

func (r *fakeRemote) Share(ctx context.Context, sess *session.Session, fileID models.ID) (string, error) {
	if err := r.hit("share"); err != nil {
		return "", err
	}
	return r.shareMsg, nil
}

func (r *fakeRemote) Batch(ctx context.Context, sess *session.Session, req models.BatchRequest) error {
	if err := r.hit("batch"); err != nil {
		return err
	}
	r.mu.Lock()
	r.batches = append(r.batches, req)
	r.mu.Unlock()
	return nil
}

// noticeLog records notices
type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) Notify(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) last() Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.notices) == 0 {
		return Notice{}
	}
	return l.notices[len(l.notices)-1]
}

type fixture struct {
	mgr      *Manager
	remote   *fakeRemote
	notices  *noticeLog
	store    *session.Store
	declined bool
	prompts  []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{remote: newFakeRemote(), notices: &noticeLog{}, store: session.NewStore()}
	f.store.Login(session.Session{Username: "alice", Token: "abc"})
	f.mgr = New(Options{
		Remote:   f.remote,
		Sessions: f.store,
		Notifier: f.notices,
		Confirmer: ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
			f.prompts = append(f.prompts, prompt)
			return !f.declined, nil
		}),
		StorageURL: "http://storage",
		Metrics:    metrics.New(),
	})
	return f
}

// loaded refreshes once and resets the call counters
func (f *fixture) loaded(t *testing.T) {
	t.Helper()
	if err := f.mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	f.remote.mu.Lock()
	f.remote.calls = map[string]int{}
	f.remote.mu.Unlock()
}

func (f *fixture) assertRefreshed(t *testing.T, want int) {
	t.Helper()
	if got := f.remote.count("list"); got != want {
		t.Errorf("list fetched %d times, want %d", got, want)
	}
	if got := f.remote.count("tree"); got != want {
		t.Errorf("tree fetched %d times, want %d", got, want)
	}
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)

	if err := f.mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	f.assertRefreshed(t, 1)
	if len(f.mgr.Files()) != 2 || len(f.mgr.Tree()) != 1 {
		t.Errorf("view = %d files, %d folders", len(f.mgr.Files()), len(f.mgr.Tree()))
	}
}

func TestRefresh_TreeFailureIsSilent(t *testing.T) {
	f := newFixture(t)
	f.loaded(t)
	f.remote.errs["tree"] = errors.New("tree down")

	if err := f.mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v, want nil", err)
	}
	if len(f.mgr.Tree()) != 1 {
		t.Error("previous tree should be kept")
	}
	if f.notices.last().Level == LevelError {
		t.Error("tree failure should not be notified")
	}
}

func TestRefresh_ListFailureIsNotified(t *testing.T) {
	f := newFixture(t)
	f.loaded(t)
	f.remote.errs["list"] = &api.NetworkError{Endpoint: "/api/myfiles", Err: errors.New("down")}

	if err := f.mgr.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() should fail")
	}
	if n := f.notices.last(); n.Level != LevelError || n.Message != "failed to load files" {
		t.Errorf("notice = %+v", n)
	}
	if len(f.mgr.Files()) != 2 {
		t.Error("previous listing should be kept")
	}
}

func TestRefresh_ListFailureStillFetchesTree(t *testing.T) {
	f := newFixture(t)
	f.loaded(t)
	f.remote.errs["list"] = errors.New("down")
	f.remote.tree = []*models.FolderNode{{Key: "d2", Title: "new"}}

	if err := f.mgr.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() should fail")
	}
	if got := f.remote.count("list"); got != 1 {
		t.Errorf("list calls = %d, want 1", got)
	}
	if got := f.remote.count("tree"); got != 1 {
		t.Errorf("tree calls = %d, want 1", got)
	}
	if tree := f.mgr.Tree(); len(tree) != 1 || tree[0].Title != "new" {
		t.Errorf("Tree() = %+v, want the fresh tree", tree)
	}
	if len(f.mgr.Files()) != 2 {
		t.Error("previous listing should be kept")
	}
}

func TestGate_NoSession(t *testing.T) {
	f := newFixture(t)
	f.store.Logout()
	f.mgr.Select("f1")
	ctx := context.Background()

	errs := []error{
		f.mgr.Refresh(ctx),
		f.mgr.OpenFolder(ctx, "d1"),
		f.mgr.Upload(ctx, storage.UploadRequest{Name: "x", Content: strings.NewReader("x")}),
		f.mgr.Delete(ctx, "f1"),
		f.mgr.Move(ctx, "f1", "d1"),
		f.mgr.BatchDelete(ctx),
		f.mgr.BatchMove(ctx, "d1"),
		f.mgr.BatchShare(ctx),
	}
	_, shareErr := f.mgr.Share(ctx, "f1")
	errs = append(errs, shareErr)

	for i, err := range errs {
		if !errors.Is(err, api.ErrUnauthenticated) {
			t.Errorf("operation %d error = %v, want ErrUnauthenticated", i, err)
		}
	}
	if f.remote.total() != 0 {
		t.Errorf("requests = %d, want 0", f.remote.total())
	}
	if len(f.prompts) != 0 {
		t.Error("no confirmation should be asked without a session")
	}
	if f.notices.last().Level != LevelError {
		t.Errorf("notice = %+v, want error", f.notices.last())
	}
}

func TestMutations_RefreshExactlyOnce(t *testing.T) {
	tests := []struct {
		name string
		run  func(m *Manager) error
	}{
		{"Upload", func(m *Manager) error {
			return m.Upload(context.Background(), storage.UploadRequest{Name: "n.txt", Content: strings.NewReader("n"), Size: 1})
		}},
		{"Delete", func(m *Manager) error { return m.Delete(context.Background(), "f1") }},
		{"Move", func(m *Manager) error { return m.Move(context.Background(), "f1", "d1") }},
		{"BatchDelete", func(m *Manager) error { m.Select("f1", "f2"); return m.BatchDelete(context.Background()) }},
		{"BatchMove", func(m *Manager) error { m.Select("f1"); return m.BatchMove(context.Background(), "d1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.loaded(t)

			if err := tt.run(f.mgr); err != nil {
				t.Fatalf("error = %v", err)
			}
			f.assertRefreshed(t, 1)
			if len(f.mgr.Selection()) != 0 {
				t.Error("selection should be empty afterwards")
			}
			if f.notices.last().Level != LevelSuccess {
				t.Errorf("notice = %+v, want success", f.notices.last())
			}
		})
	}
}

func TestMutations_FailureLeavesStateUntouched(t *testing.T) {
	rejected := &api.BusinessError{Code: 1, Message: "denied"}
	tests := []struct {
		name string
		op   string
		run  func(m *Manager) error
	}{
		{"Upload", "upload", func(m *Manager) error {
			return m.Upload(context.Background(), storage.UploadRequest{Name: "n.txt", Content: strings.NewReader("n")})
		}},
		{"Delete", "delete", func(m *Manager) error { return m.Delete(context.Background(), "f1") }},
		{"Move", "move", func(m *Manager) error { return m.Move(context.Background(), "f1", "d1") }},
		{"BatchDelete", "batch", func(m *Manager) error { return m.BatchDelete(context.Background()) }},
		{"BatchMove", "batch", func(m *Manager) error { return m.BatchMove(context.Background(), "d1") }},
		{"BatchShare", "batch", func(m *Manager) error { return m.BatchShare(context.Background()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.loaded(t)
			f.mgr.Select("f1", "f2")
			f.remote.errs[tt.op] = rejected

			err := tt.run(f.mgr)
			if !errors.Is(err, rejected) {
				t.Fatalf("error = %v, want the backend rejection", err)
			}
			f.assertRefreshed(t, 0)
			if got := len(f.mgr.Selection()); got != 2 {
				t.Errorf("selection size = %d, want 2", got)
			}
			if len(f.mgr.Files()) != 2 {
				t.Error("listing should be unchanged")
			}
			if n := f.notices.last(); n.Level != LevelError || n.Message != "denied" {
				t.Errorf("notice = %+v, want error denied", n)
			}
		})
	}
}

func TestBatch_EmptySelection(t *testing.T) {
	ctx := context.Background()
	ops := map[string]func(m *Manager) error{
		"BatchDelete": func(m *Manager) error { return m.BatchDelete(ctx) },
		"BatchMove":   func(m *Manager) error { return m.BatchMove(ctx, "d1") },
		"BatchShare":  func(m *Manager) error { return m.BatchShare(ctx) },
	}

	for name, run := range ops {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)

			if err := run(f.mgr); !errors.Is(err, ErrEmptySelection) {
				t.Fatalf("error = %v, want ErrEmptySelection", err)
			}
			if f.remote.total() != 0 {
				t.Errorf("requests = %d, want 0", f.remote.total())
			}
			if f.notices.last().Level != LevelWarning {
				t.Errorf("notice = %+v, want warning", f.notices.last())
			}
			if len(f.prompts) != 0 {
				t.Error("no confirmation should be asked")
			}
		})
	}
}

func TestConfirmation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(m *Manager) error
	}{
		{"Delete", func(m *Manager) error { return m.Delete(ctx, "f1") }},
		{"BatchDelete", func(m *Manager) error { return m.BatchDelete(ctx) }},
		{"BatchMove", func(m *Manager) error { return m.BatchMove(ctx, "d1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.loaded(t)
			f.mgr.Select("f1")
			f.declined = true

			if err := tt.run(f.mgr); !errors.Is(err, ErrCancelled) {
				t.Fatalf("error = %v, want ErrCancelled", err)
			}
			if len(f.prompts) != 1 {
				t.Errorf("prompts = %v, want one", f.prompts)
			}
			if f.remote.total() != 0 {
				t.Errorf("requests = %d, want 0", f.remote.total())
			}
			if len(f.mgr.Selection()) != 1 {
				t.Error("selection should be kept")
			}
		})
	}

	t.Run("DeletePromptNamesFile", func(t *testing.T) {
		f := newFixture(t)
		f.loaded(t)
		f.mgr.Delete(ctx, "f1")
		if len(f.prompts) != 1 || !strings.Contains(f.prompts[0], "a.txt") {
			t.Errorf("prompts = %v", f.prompts)
		}
	})

	t.Run("MoveAndShareDoNotConfirm", func(t *testing.T) {
		f := newFixture(t)
		f.declined = true
		if err := f.mgr.Move(ctx, "f1", "d1"); err != nil {
			t.Errorf("Move() error = %v", err)
		}
		if _, err := f.mgr.Share(ctx, "f1"); err != nil {
			t.Errorf("Share() error = %v", err)
		}
		f.mgr.Select("f1")
		if err := f.mgr.BatchShare(ctx); err != nil {
			t.Errorf("BatchShare() error = %v", err)
		}
		if len(f.prompts) != 0 {
			t.Errorf("prompts = %v, want none", f.prompts)
		}
	})
}

func TestShare(t *testing.T) {
	f := newFixture(t)
	f.loaded(t)
	f.remote.shareMsg = "link valid for 7 days"

	msg, err := f.mgr.Share(context.Background(), "f1")
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if msg != "link valid for 7 days" || f.notices.last().Message != msg {
		t.Errorf("Share() = %q, notice = %+v", msg, f.notices.last())
	}
	f.assertRefreshed(t, 0)
}

func TestBatchShare_ClearsSelectionWithoutRefresh(t *testing.T) {
	f := newFixture(t)
	f.loaded(t)
	f.mgr.Select("f1", "f2")

	if err := f.mgr.BatchShare(context.Background()); err != nil {
		t.Fatalf("BatchShare() error = %v", err)
	}
	f.assertRefreshed(t, 0)
	if len(f.mgr.Selection()) != 0 {
		t.Error("selection should be cleared")
	}
	if got := f.remote.batches[0]; got.Command != models.BatchShare || len(got.FileIDs) != 2 {
		t.Errorf("batch = %+v", got)
	}
}

func TestBatchMove_RequiresTarget(t *testing.T) {
	f := newFixture(t)
	f.mgr.Select("f1")

	var ve *models.ValidationError
	if err := f.mgr.BatchMove(context.Background(), ""); !errors.As(err, &ve) {
		t.Fatalf("BatchMove() error = %v, want ValidationError", err)
	}
	if f.remote.total() != 0 || len(f.prompts) != 0 {
		t.Error("nothing should be sent or asked")
	}
}

func TestOpenFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mgr.OpenFolder(ctx, "d1"); err != nil {
		t.Fatalf("OpenFolder() error = %v", err)
	}
	if f.mgr.CurrentFolder() != "d1" || f.mgr.Files()[0].Name != "in-d1" {
		t.Errorf("folder = %v, files = %v", f.mgr.CurrentFolder(), f.mgr.Files())
	}

	// Refresh keeps using the folder
	f.mgr.Refresh(ctx)
	if f.remote.count("folderfiles") != 2 || f.remote.count("list") != 0 {
		t.Errorf("calls = %v", f.remote.calls)
	}

	f.remote.errs["folderfiles"] = errors.New("gone")
	if err := f.mgr.OpenFolder(ctx, "d2"); err == nil {
		t.Fatal("OpenFolder() should fail")
	}
	if f.mgr.CurrentFolder() != "d1" {
		t.Error("folder should be unchanged on failure")
	}

	if err := f.mgr.OpenFolder(ctx, ""); err != nil {
		t.Fatalf("OpenFolder(root) error = %v", err)
	}
	if f.mgr.CurrentFolder() != "" || len(f.mgr.Files()) != 2 {
		t.Error("should be back at the root listing")
	}
}

func TestSelection(t *testing.T) {
	f := newFixture(t)
	f.mgr.Select("b", "a", "")
	f.mgr.Select("a")
	if got := f.mgr.Selection(); len(got) != 2 || got[0] != "a" {
		t.Errorf("Selection() = %v", got)
	}
	f.mgr.Deselect("a")
	if got := f.mgr.Selection(); len(got) != 1 || got[0] != "b" {
		t.Errorf("Selection() = %v", got)
	}
	f.mgr.ClearSelection()
	if len(f.mgr.Selection()) != 0 {
		t.Error("selection should be empty")
	}
}

func TestDownloadURL(t *testing.T) {
	f := newFixture(t)
	f.loaded(t)

	a, _ := f.mgr.File("f1")
	b, _ := f.mgr.File("f2")
	if got := f.mgr.DownloadURL(a); got != "http://storage/alice/a.txt" {
		t.Errorf("DownloadURL(a) = %v", got)
	}
	if got := f.mgr.DownloadURL(b); got != "http://cdn/b.txt" {
		t.Errorf("DownloadURL(b) = %v", got)
	}
	if f.remote.total() != 0 {
		t.Error("resolving a link must not issue requests")
	}
}

func TestUploadFiles(t *testing.T) {
	f := newFixture(t)
	f.loaded(t)

	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "one.txt"), []byte("111"), 0644)
	os.WriteFile(filepath.Join(dir, "two.txt"), []byte("22"), 0644)
	tasks, err := transfer.Collect(context.Background(), []string{dir}, nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	report := f.mgr.UploadFiles(context.Background(), tasks, "")
	if report.Status != models.StatusSuccess {
		t.Fatalf("Status = %v, errors = %v", report.Status, report.Errors)
	}
	if report.BytesTransferred != 5 {
		t.Errorf("BytesTransferred = %d, want 5", report.BytesTransferred)
	}
	if f.remote.uploads["one.txt"] != "111" || f.remote.uploads["two.txt"] != "22" {
		t.Errorf("uploads = %v", f.remote.uploads)
	}
	f.assertRefreshed(t, 1)
}

func TestUploadFiles_Partial(t *testing.T) {
	f := newFixture(t)
	f.loaded(t)

	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "ok.txt"), []byte("ok"), 0644)
	local, _ := storage.NewLocal(dir)
	tasks := []*transfer.Task{
		transfer.NewTask("ok.txt", "ok.txt", local, 2),
		transfer.NewTask("missing.txt", "missing.txt", local, 1),
	}

	report := f.mgr.UploadFiles(context.Background(), tasks, "d1")
	if report.Status != models.StatusPartial || report.Status.ExitCode() != 1 {
		t.Errorf("Status = %v, want partial", report.Status)
	}
	if f.notices.last().Level == LevelError {
		t.Errorf("notice = %+v", f.notices.last())
	}
	f.assertRefreshed(t, 1)
}

func TestUploadFiles_AllFailedNoRefresh(t *testing.T) {
	f := newFixture(t)
	f.loaded(t)
	f.remote.errs["upload"] = &api.BusinessError{Code: 1, Message: "quota"}

	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644)
	tasks, _ := transfer.Collect(context.Background(), []string{dir}, nil)

	report := f.mgr.UploadFiles(context.Background(), tasks, "")
	if report.Status != models.StatusFailed {
		t.Errorf("Status = %v, want failed", report.Status)
	}
	f.assertRefreshed(t, 0)
}

// Scenarios against a fake HTTP backend, through the real transport

type httpBackend struct {
	mu    sync.Mutex
	paths []string
	reply map[string]string
}

func (b *httpBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.paths {
		if p == path {
			n++
		}
	}
	return n
}

func newHTTPManager(t *testing.T, reply map[string]string) (*Manager, *httpBackend, *noticeLog) {
	t.Helper()
	b := &httpBackend{reply: reply}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.paths = append(b.paths, r.URL.Path)
		body, ok := b.reply[r.URL.Path]
		b.mu.Unlock()
		if !ok {
			body = `{"code":0}`
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)

	client := api.New(api.Config{BaseURL: ts.URL})
	store := session.NewStore()
	store.Login(session.Session{Username: "alice", Token: "abc"})
	notices := &noticeLog{}

	mgr := New(Options{
		Remote:     storage.NewHTTPRemote(client, api.DefaultEndpoints(), nil),
		Sessions:   store,
		Notifier:   notices,
		Fetcher:    client,
		StorageURL: ts.URL + "/storage",
	})
	return mgr, b, notices
}

func TestScenario_BatchDelete(t *testing.T) {
	mgr, b, _ := newHTTPManager(t, map[string]string{
		"/api/myfiles": `[{"id":"f1","name":"a"},{"id":"f2","name":"b"}]`,
		"/api/folders": `{"code":0,"data":[]}`,
	})

	mgr.Select("f1", "f2")
	if err := mgr.BatchDelete(context.Background()); err != nil {
		t.Fatalf("BatchDelete() error = %v", err)
	}
	if len(mgr.Selection()) != 0 {
		t.Error("selection should be empty")
	}
	if b.count("/api/batchoperation") != 1 || b.count("/api/myfiles") != 1 || b.count("/api/folders") != 1 {
		t.Errorf("requests = %v", b.paths)
	}
}

func TestScenario_ShareExpired(t *testing.T) {
	mgr, b, notices := newHTTPManager(t, map[string]string{
		"/api/sharefiles": `{"code":1,"msg":"expired"}`,
	})
	mgr.Select("f1")

	if _, err := mgr.Share(context.Background(), "f1"); err == nil {
		t.Fatal("Share() should fail")
	}
	if n := notices.last(); n.Message != "expired" || n.Level != LevelError {
		t.Errorf("notice = %+v, want expired", n)
	}
	if len(mgr.Selection()) != 1 || len(b.paths) != 1 {
		t.Errorf("state changed: selection = %v, requests = %v", mgr.Selection(), b.paths)
	}
}

func TestScenario_Download(t *testing.T) {
	mgr, _, _ := newHTTPManager(t, map[string]string{
		"/storage/alice/a.txt": "content of a",
	})
	dest, _ := storage.NewLocal(t.TempDir())

	report := mgr.Download(context.Background(), []models.FileRecord{
		{ID: "f1", Name: "a.txt", Path: "alice/a.txt"},
		{ID: "f2", Name: "../escape.txt", Path: "alice/a.txt"},
	}, dest)
	if report.Status != models.StatusSuccess {
		t.Fatalf("Status = %v, errors = %v", report.Status, report.Errors)
	}

	data, err := os.ReadFile(filepath.Join(dest.Root(), "a.txt"))
	if err != nil || string(data) != "content of a" {
		t.Errorf("a.txt = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dest.Root(), "escape.txt")); err != nil {
		t.Errorf("escaping name should be stored by base name: %v", err)
	}
}

func TestDownload_EmptySelection(t *testing.T) {
	mgr, b, _ := newHTTPManager(t, nil)
	dest, _ := storage.NewLocal(t.TempDir())

	report := mgr.DownloadSelection(context.Background(), dest)
	if report.Status != models.StatusFailed {
		t.Errorf("Status = %v, want failed", report.Status)
	}
	if len(b.paths) != 0 {
		t.Errorf("requests = %v, want none", b.paths)
	}
}
