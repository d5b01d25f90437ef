package app

import (
	"context"
	"log/slog"
	"sync"

	"saral/internal/task"
	"saral/internal/util"
	"saral/pkg/answer"
	"saral/pkg/domain"
	"saral/pkg/navigation"
	"saral/pkg/queue"
	"saral/pkg/simulate"
)

// Workspace is the dashboard state of one signed-in session: the chat
// transcript, the pending upload list, both connect panels and the active
// panel. It lives until logout.
type Workspace struct {
	id     string
	app    *App
	user   domain.User
	nav    *navigation.State
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	messages   []domain.ChatMessage
	asking     bool
	items      []domain.UploadItem
	upload     *task.Task[simulate.BatchResult]
	connectors map[domain.ConnectKind]*simulate.Connector
}

// NavigationView is the sidebar of a workspace.
type NavigationView struct {
	Portal string           `json:"portal"`
	Items  []domain.NavItem `json:"items"`
	Active domain.Panel     `json:"active"`
}

func newWorkspace(a *App, user domain.User, logger *slog.Logger) *Workspace {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workspace{
		id:     util.NewID(),
		app:    a,
		user:   user,
		nav:    navigation.NewState(user.Role),
		ctx:    ctx,
		cancel: cancel,
	}
	w.logger = logger.With("workspace", w.id, "role", user.Role)
	w.ctx = util.ContextWithLogger(ctx, w.logger)
	w.connectors = map[domain.ConnectKind]*simulate.Connector{
		domain.ConnectWeb:      w.newConnector(domain.ConnectWeb),
		domain.ConnectDatabase: w.newConnector(domain.ConnectDatabase),
	}
	return w
}

func (w *Workspace) newConnector(kind domain.ConnectKind) *simulate.Connector {
	c := simulate.NewConnector(kind, w.app.connectDelay, w.app.resetDelay)
	c.OnChange = func(state domain.ConnectState) {
		ev := Event{Type: EventConnectState, Data: state}
		if state.Status == domain.ConnectConnected {
			ev.Message = simulate.ConnectedMessage(kind)
		}
		w.publish(ev)
	}
	c.OnConnected = func(ctx context.Context, input string) {
		rec := w.app.historyRecord(kind, input)
		if err := w.app.store.AddUpload(ctx, rec); err != nil {
			w.logger.Warn("record connect failed", "kind", kind, "err", err)
		} else {
			w.publish(Event{Type: EventHistory, Data: rec})
		}
		if kind == domain.ConnectWeb {
			w.app.enqueue(ctx, queue.Job{Kind: queue.KindWeb, Ref: input, Name: input})
		}
	}
	return c
}

// ID identifies the workspace on the event hub.
func (w *Workspace) ID() string { return w.id }

// User is the signed-in user.
func (w *Workspace) User() domain.User { return w.user }

// Navigation returns the role's menu and the active panel.
func (w *Workspace) Navigation() NavigationView {
	return NavigationView{
		Portal: navigation.PortalLabel(w.user.Role),
		Items:  navigation.Menu(w.user.Role),
		Active: w.nav.Active(),
	}
}

// SelectPanel switches the active panel.
func (w *Workspace) SelectPanel(panel domain.Panel) (NavigationView, error) {
	if err := w.nav.Select(panel); err != nil {
		return NavigationView{}, err
	}
	return w.Navigation(), nil
}

// Messages returns the chat transcript in order.
func (w *Workspace) Messages() []domain.ChatMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.ChatMessage(nil), w.messages...)
}

// Ask appends the question, waits for the answer and appends it. Only one
// question per workspace may be in flight. The wait ends early when ctx ends
// or the workspace is closed.
func (w *Workspace) Ask(ctx context.Context, query string) (domain.ChatMessage, error) {
	if err := answer.ValidateQuery(query); err != nil {
		return domain.ChatMessage{}, err
	}
	w.mu.Lock()
	if w.asking {
		w.mu.Unlock()
		return domain.ChatMessage{}, answer.ErrResponderBusy
	}
	w.asking = true
	userMsg := domain.ChatMessage{ID: util.NewID(), Type: domain.MessageUser, Content: query, Timestamp: w.app.now()}
	w.messages = append(w.messages, userMsg)
	w.mu.Unlock()
	w.publish(Event{Type: EventMessage, Data: userMsg})

	defer func() {
		w.mu.Lock()
		w.asking = false
		w.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(w.ctx, cancel)
	defer stop()

	ans, err := w.app.responder.Answer(ctx, query)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	now := w.app.now()
	botMsg := domain.ChatMessage{
		ID:        util.NewID(),
		Type:      domain.MessageBot,
		Content:   ans.Response,
		Sources:   ans.Sources,
		Timestamp: now,
	}
	w.mu.Lock()
	w.messages = append(w.messages, botMsg)
	w.mu.Unlock()
	w.publish(Event{Type: EventMessage, Data: botMsg})

	rec := domain.QueryHistoryRecord{
		ID:           util.NewID(),
		Query:        query,
		Date:         now.Format("2006-01-02"),
		Time:         now.Format("03:04 PM"),
		SourcesCount: len(ans.Sources),
	}
	if err := w.app.store.AddQuery(ctx, rec); err != nil {
		util.LoggerFromContext(ctx).Warn("record query failed", "err", err)
	}
	return botMsg, nil
}

// Items returns the upload list.
func (w *Workspace) Items() []domain.UploadItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.UploadItem(nil), w.items...)
}

// AddItem queues a selected file as pending.
func (w *Workspace) AddItem(name, contentType string, data []byte) (domain.UploadItem, error) {
	if err := simulate.AcceptFile(name, int64(len(data))); err != nil {
		return domain.UploadItem{}, err
	}
	item := domain.UploadItem{
		ID:          util.NewID(),
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		Status:      domain.UploadPending,
		Data:        data,
	}
	w.mu.Lock()
	w.items = append(w.items, item)
	w.mu.Unlock()
	return item, nil
}

// RemoveItem drops a pending item.
func (w *Workspace) RemoveItem(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, item := range w.items {
		if item.ID != id {
			continue
		}
		if item.Status != domain.UploadPending {
			return ErrItemNotPending
		}
		w.items = append(w.items[:i], w.items[i+1:]...)
		return nil
	}
	return ErrItemNotFound
}

// ClearItems empties the list unless a batch is running.
func (w *Workspace) ClearItems() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.uploadRunning() {
		return ErrUploadBusy
	}
	w.items = nil
	return nil
}

// StartUpload runs the pending items through the upload simulator in the
// background. The returned task finishes once the batch is recorded; the
// list is cleared later.
func (w *Workspace) StartUpload() (*task.Task[simulate.BatchResult], error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.uploadRunning() {
		return nil, ErrUploadBusy
	}
	var pending []domain.UploadItem
	for _, item := range w.items {
		if item.Status == domain.UploadPending {
			pending = append(pending, item)
		}
	}
	if len(pending) == 0 {
		return nil, simulate.ErrNoFiles
	}

	up := w.app.newUploader()
	keys := make(map[string]string, len(pending))
	up.Persist = func(ctx context.Context, item domain.UploadItem) error {
		key, err := w.app.storeItem(ctx, item)
		if err != nil {
			return err
		}
		keys[item.ID] = key
		return nil
	}
	batch := task.Go(w.ctx, func(ctx context.Context) (simulate.BatchResult, error) {
		return w.runUpload(ctx, up, pending, keys)
	})
	w.upload = batch
	go w.clearAfter(batch)
	return batch, nil
}

func (w *Workspace) uploadRunning() bool {
	if w.upload == nil {
		return false
	}
	_, _, finished := w.upload.Result()
	return !finished
}

func (w *Workspace) runUpload(ctx context.Context, up *simulate.Uploader, items []domain.UploadItem, keys map[string]string) (simulate.BatchResult, error) {
	res, err := up.Run(ctx, items, w.updateItem)
	if err != nil {
		w.logger.Warn("upload batch failed", "err", err)
		w.publish(Event{Type: EventUploadFailed, Message: simulate.ErrUploadFailed.Error()})
		return res, err
	}
	// the store lists newest first, so the batch is added in reverse to
	// keep item order at the top
	for i := len(res.Records) - 1; i >= 0; i-- {
		if err := w.app.store.AddUpload(ctx, res.Records[i]); err != nil {
			w.logger.Warn("record upload failed", "err", err)
			w.publish(Event{Type: EventUploadFailed, Message: simulate.ErrUploadFailed.Error()})
			return res, err
		}
	}
	for _, item := range res.Items {
		w.app.enqueue(ctx, queue.Job{Kind: queue.KindDocument, Ref: keys[item.ID], Name: item.Name})
	}
	w.logger.Info("upload batch complete", "files", len(res.Items))
	w.publish(Event{Type: EventUploadDone, Message: res.Message, Data: res.Records})
	w.publish(Event{Type: EventHistory, Data: res.Records})
	return res, nil
}

// clearAfter removes a successful batch from the list once the clear delay
// has passed.
func (w *Workspace) clearAfter(batch *task.Task[simulate.BatchResult]) {
	<-batch.Done()
	res, err, _ := batch.Result()
	if err != nil {
		return
	}
	if task.Sleep(w.ctx, w.app.clearDelay) != nil {
		return
	}
	ids := make(map[string]bool, len(res.Items))
	for _, item := range res.Items {
		ids[item.ID] = true
	}
	w.mu.Lock()
	kept := w.items[:0]
	for _, item := range w.items {
		if !ids[item.ID] {
			kept = append(kept, item)
		}
	}
	w.items = kept
	w.mu.Unlock()
	w.publish(Event{Type: EventUploadCleared})
}

func (w *Workspace) updateItem(item domain.UploadItem) {
	w.mu.Lock()
	for i := range w.items {
		if w.items[i].ID == item.ID {
			w.items[i].Status = item.Status
			w.items[i].Progress = item.Progress
			break
		}
	}
	w.mu.Unlock()
	item.Data = nil
	w.publish(Event{Type: EventUploadProgress, Data: item})
}

// Connect submits a web URL or database connection string.
func (w *Workspace) Connect(kind domain.ConnectKind, input string) error {
	c, ok := w.connectors[kind]
	if !ok {
		return ErrUnknownConnect
	}
	return c.Submit(w.ctx, input)
}

// ConnectState returns the state of one connect panel.
func (w *Workspace) ConnectState(kind domain.ConnectKind) (domain.ConnectState, error) {
	c, ok := w.connectors[kind]
	if !ok {
		return domain.ConnectState{}, ErrUnknownConnect
	}
	return c.State(), nil
}

// WaitConnect blocks until the running connect of kind has reset.
func (w *Workspace) WaitConnect(ctx context.Context, kind domain.ConnectKind) error {
	c, ok := w.connectors[kind]
	if !ok {
		return ErrUnknownConnect
	}
	return c.Wait(ctx)
}

func (w *Workspace) publish(ev Event) {
	w.app.events.Publish(w.id, ev)
}

func (w *Workspace) close() {
	w.cancel()
	for _, c := range w.connectors {
		c.Cancel()
	}
	w.mu.Lock()
	batch := w.upload
	w.mu.Unlock()
	if batch != nil {
		<-batch.Done()
	}
	w.logger.Info("workspace closed")
}
