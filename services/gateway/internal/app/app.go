package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"saral/internal/util"
	"saral/pkg/analytics"
	"saral/pkg/answer"
	"saral/pkg/domain"
	"saral/pkg/ingest"
	"saral/pkg/queue"
	"saral/pkg/simulate"
	"saral/pkg/storage"
	"saral/pkg/store"
)

// Directory resolves sign-in attempts and session subjects to users.
type Directory interface {
	Authenticate(email, password string) (domain.User, error)
	Lookup(email string) (domain.User, bool)
}

// Config holds runtime dependencies for the core application.
type Config struct {
	Store     store.Store
	Sessions  store.SessionStore
	Directory Directory
	Responder answer.Responder
	Objects   storage.ObjectStore
	// Jobs receives ingest jobs for completed uploads and web connects. Nil
	// disables ingest.
	Jobs   queue.Enqueuer
	Events Publisher

	// NewUploader builds the simulator for each batch. Nil uses the defaults.
	NewUploader  func() *simulate.Uploader
	ConnectDelay time.Duration
	ResetDelay   time.Duration
	ClearDelay   time.Duration
	Now          func() time.Time
}

// App owns the history repository and the per-session workspaces.
type App struct {
	store     store.Store
	sessions  store.SessionStore
	directory Directory
	responder answer.Responder
	objects   storage.ObjectStore
	jobs      queue.Enqueuer
	events    Publisher

	newUploader  func() *simulate.Uploader
	connectDelay time.Duration
	resetDelay   time.Duration
	clearDelay   time.Duration
	now          func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// New validates cfg and constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store required")
	}
	if cfg.Directory == nil {
		return nil, errors.New("credential directory required")
	}
	if cfg.Objects == nil {
		return nil, errors.New("object store required")
	}
	a := &App{
		store:        cfg.Store,
		sessions:     cfg.Sessions,
		directory:    cfg.Directory,
		responder:    cfg.Responder,
		objects:      cfg.Objects,
		jobs:         cfg.Jobs,
		events:       cfg.Events,
		newUploader:  cfg.NewUploader,
		connectDelay: cfg.ConnectDelay,
		resetDelay:   cfg.ResetDelay,
		clearDelay:   cfg.ClearDelay,
		now:          cfg.Now,
		workspaces:   make(map[string]*Workspace),
	}
	if a.responder == nil {
		a.responder = answer.NewKeywordResponder(answer.DefaultDelay)
	}
	if a.events == nil {
		a.events = nopPublisher{}
	}
	if a.newUploader == nil {
		a.newUploader = simulate.NewUploader
	}
	if a.clearDelay <= 0 {
		a.clearDelay = simulate.DefaultClearDelay
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

// Login checks the credential table and issues a session with a fresh workspace.
func (a *App) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	user, err := a.directory.Authenticate(email, password)
	if err != nil {
		return domain.User{}, "", err
	}
	token, err := a.sessions.NewSession(user.Email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	if _, ok := a.Workspace(ctx, token); !ok {
		return domain.User{}, "", ErrSessionEnded
	}
	return user, token, nil
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	email, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	return a.directory.Lookup(email)
}

// Logout revokes the token and tears down its workspace, cancelling any
// running answer, upload or connect. The session is deleted before the
// workspace so a concurrent Workspace call cannot reopen it.
func (a *App) Logout(token string) error {
	err := a.sessions.DeleteSession(token)
	a.drop(token, nil)
	return err
}

// Workspace returns the workspace of a live session, creating it on first
// use. A session that outlives a restart gets a fresh workspace. An ended
// session reports false and releases any workspace still held for it.
func (a *App) Workspace(ctx context.Context, token string) (*Workspace, bool) {
	a.mu.Lock()
	user, ok := a.UserFromToken(token)
	if !ok {
		ws, held := a.workspaces[token]
		delete(a.workspaces, token)
		a.mu.Unlock()
		if held {
			ws.close()
		}
		return nil, false
	}
	defer a.mu.Unlock()
	if ws, ok := a.workspaces[token]; ok {
		return ws, true
	}
	ws := newWorkspace(a, user, slog.Default())
	a.workspaces[token] = ws
	util.LoggerFromContext(ctx).Info("workspace opened", "workspace", ws.ID(), "role", user.Role)
	return ws, true
}

// drop removes the workspace held under token, or only want when it is set,
// and closes it.
func (a *App) drop(token string, want *Workspace) {
	a.mu.Lock()
	ws, ok := a.workspaces[token]
	if ok && (want == nil || ws == want) {
		delete(a.workspaces, token)
	} else {
		ok = false
	}
	a.mu.Unlock()
	if ok {
		ws.close()
	}
}

// Sweep closes the workspaces of sessions that expired or were revoked
// elsewhere and returns how many it released.
func (a *App) Sweep(ctx context.Context) int {
	a.mu.Lock()
	held := make(map[string]*Workspace, len(a.workspaces))
	for token, ws := range a.workspaces {
		held[token] = ws
	}
	a.mu.Unlock()

	released := 0
	for token, ws := range held {
		if _, ok := a.UserFromToken(token); ok {
			continue
		}
		a.drop(token, ws)
		released++
	}
	if released > 0 {
		util.LoggerFromContext(ctx).Info("expired workspaces released", "count", released)
	}
	return released
}

// RunSweeper calls Sweep every interval until ctx ends.
func (a *App) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.Sweep(ctx)
		}
	}
}

// Close tears down every workspace.
func (a *App) Close() {
	a.mu.Lock()
	all := make([]*Workspace, 0, len(a.workspaces))
	for token, ws := range a.workspaces {
		all = append(all, ws)
		delete(a.workspaces, token)
	}
	a.mu.Unlock()
	for _, ws := range all {
		ws.close()
	}
}

// UploadHistory lists upload records, newest first.
func (a *App) UploadHistory(ctx context.Context) ([]domain.UploadHistoryRecord, error) {
	return a.store.ListUploads(ctx)
}

// QueryHistory lists answered questions, newest first.
func (a *App) QueryHistory(ctx context.Context) ([]domain.QueryHistoryRecord, error) {
	return a.store.ListQueries(ctx)
}

// Settings returns the profile and saved notification switches of user.
func (a *App) Settings(ctx context.Context, user domain.User) (domain.Settings, error) {
	prefs, ok, err := a.store.GetNotifications(ctx, user.Email)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		prefs = domain.DefaultNotificationPrefs()
	}
	return domain.Settings{Profile: user, Initials: user.Initials(), Notifications: prefs}, nil
}

// SaveSettings stores the notification switches of user.
func (a *App) SaveSettings(ctx context.Context, user domain.User, prefs domain.NotificationPrefs) (domain.Settings, error) {
	if err := a.store.SaveNotifications(ctx, user.Email, prefs); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return domain.Settings{Profile: user, Initials: user.Initials(), Notifications: prefs}, nil
}

// Dashboard returns the analytics overview with live counters.
func (a *App) Dashboard(ctx context.Context) (analytics.Overview, error) {
	return analytics.Build(ctx, a)
}

// Counts satisfies analytics.Counter.
func (a *App) Counts(ctx context.Context) (analytics.Live, error) {
	uploads, err := a.store.ListUploads(ctx)
	if err != nil {
		return analytics.Live{}, err
	}
	queries, err := a.store.ListQueries(ctx)
	if err != nil {
		return analytics.Live{}, err
	}
	chunks, err := a.store.CountChunks(ctx)
	if err != nil {
		return analytics.Live{}, err
	}
	return analytics.Live{Uploads: len(uploads), Queries: len(queries), Chunks: chunks}, nil
}

// IngestFile stores a file dropped into the inbox, records it in upload
// history and queues it for ingest.
func (a *App) IngestFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read inbox file: %w", err)
	}
	name := filepath.Base(path)
	if err := simulate.AcceptFile(name, int64(len(data))); err != nil {
		return err
	}
	item := domain.UploadItem{
		ID:     util.NewID(),
		Name:   name,
		Size:   int64(len(data)),
		Status: domain.UploadSuccess,
		Data:   data,
	}
	key, err := a.storeItem(ctx, item)
	if err != nil {
		return err
	}
	if err := a.store.AddUpload(ctx, simulate.RecordFor(item, a.now())); err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	a.enqueue(ctx, queue.Job{Kind: queue.KindDocument, Ref: key, Name: name})
	util.LoggerFromContext(ctx).Info("inbox file stored", "name", name, "key", key)
	return nil
}

func (a *App) storeItem(ctx context.Context, item domain.UploadItem) (string, error) {
	key := storage.UploadKey(item.ID, item.Name)
	contentType := item.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := a.objects.Put(ctx, key, bytes.NewReader(item.Data), int64(len(item.Data)), contentType); err != nil {
		return "", fmt.Errorf("store %s: %w", item.Name, err)
	}
	return key, nil
}

// enqueue hands a job to the ingest queue. Failures are logged; the mock
// flows never depend on ingest.
func (a *App) enqueue(ctx context.Context, job queue.Job) {
	if a.jobs == nil {
		return
	}
	if job.Kind == queue.KindDocument && !ingest.Extractable(job.Name) {
		util.LoggerFromContext(ctx).Info("ingest skipped", "ref", job.Ref, "reason", "no extractable text")
		return
	}
	status, err := a.jobs.Enqueue(ctx, job)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("enqueue ingest failed", "kind", job.Kind, "ref", job.Ref, "err", err)
		return
	}
	util.LoggerFromContext(ctx).Info("ingest queued", "job_id", status.ID, "kind", job.Kind)
}

func (a *App) historyRecord(kind domain.ConnectKind, input string) domain.UploadHistoryRecord {
	now := a.now()
	rec := domain.UploadHistoryRecord{
		ID:     util.NewID(),
		Name:   input,
		Type:   domain.RecordWeb,
		Date:   now.Format("2006-01-02"),
		Time:   now.Format("03:04 PM"),
		Status: domain.RecordSuccess,
		Size:   "-",
	}
	if kind == domain.ConnectDatabase {
		rec.Name = ingest.DescribeConnection(input)
		rec.Type = domain.RecordDatabase
	}
	return rec
}
