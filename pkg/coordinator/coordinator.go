// Package coordinator owns the Session View State of one signed-in session:
// which document is active, which uploads are still placeholders, and the
// cached content shown for the active document. It reconciles user
// navigation, upload progress and backend fetches that complete out of
// order, so a widget never renders one document's text under another's
// chrome.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"linguabridge-gateway/internal/pkg/logger"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/events"

	"golang.org/x/sync/errgroup"
)

const (
	module = "Coordinator"

	DefaultSettleDelay = 100 * time.Millisecond

	publishTimeout = 5 * time.Second
)

// Backend is the part of the document backend the coordinator reads and
// mutates through. *backend.Client satisfies it.
type Backend interface {
	Metadata(ctx context.Context, documentID string) (*backend.Metadata, error)
	ListDocuments(ctx context.Context, userID string) ([]backend.Document, error)
	DeleteDocument(ctx context.Context, userID, documentID string) error
}

// Notifier receives a snapshot after every committed mutation.
type Notifier interface {
	NotifyState(sessionID string, snap Snapshot)
}

// ActiveDocumentObserver is told whenever the active identity changes.
type ActiveDocumentObserver interface {
	ActiveDocumentChanged(ctx context.Context, documentID string)
}

type Options struct {
	SessionID   string
	User        User
	Backend     Backend
	Notifier    Notifier
	Observer    ActiveDocumentObserver
	Events      events.Publisher
	Logger      logger.ILogger
	SettleDelay time.Duration
	Now         func() time.Time
}

type Coordinator struct {
	sessionID   string
	user        User
	backend     Backend
	notifier    Notifier
	observer    ActiveDocumentObserver
	events      events.Publisher
	logger      logger.ILogger
	settleDelay time.Duration
	now         func() time.Time

	mu        sync.Mutex
	state     viewState
	version   uint64
	switchGen uint64

	inflight sync.WaitGroup
}

func New(opts Options) *Coordinator {
	c := &Coordinator{
		sessionID:   opts.SessionID,
		user:        opts.User,
		backend:     opts.Backend,
		notifier:    opts.Notifier,
		observer:    opts.Observer,
		events:      opts.Events,
		logger:      opts.Logger,
		settleDelay: opts.SettleDelay,
		now:         opts.Now,
		state:       newViewState(),
	}
	if c.logger == nil {
		c.logger = logger.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.settleDelay < 0 {
		c.settleDelay = 0
	}
	return c
}

func (c *Coordinator) SessionID() string { return c.sessionID }

func (c *Coordinator) User() User { return c.user }

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.snapshot(c.sessionID, c.version)
}

// StartUpload makes a fresh placeholder the active document. No network call.
func (c *Coordinator) StartUpload(file FileInfo) string {
	id := NewPlaceholderID(c.now())

	c.mu.Lock()
	c.state.pendingUploads[id] = struct{}{}
	c.state.activeDocumentID = id
	c.state.activeFilename = file.Name
	c.state.activeFileExtension = fileExtension(file.Name)
	c.state.clearText()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.logger.Info(module, "Upload started", map[string]interface{}{
		"session_id":  c.sessionID,
		"placeholder": id,
		"filename":    file.Name,
		"size":        file.Size,
	})
	c.notify(snap)
	c.activeChanged(context.Background(), id)
	return id
}

// CompleteUpload commits the durable identity reported by the backend, then
// fetches its metadata and refreshes the document list concurrently.
func (c *Coordinator) CompleteUpload(ctx context.Context, res backend.UploadResult) error {
	run, err := c.beginComplete(res)
	if err != nil {
		return err
	}
	return run(ctx)
}

func (c *Coordinator) beginComplete(res backend.UploadResult) (func(context.Context) error, error) {
	c.mu.Lock()
	// Only one upload is assumed in flight, so every placeholder goes.
	c.state.clearPlaceholders()

	if !ValidIdentity(res.DocumentID) {
		snap := c.commitLocked()
		c.mu.Unlock()
		c.notify(snap)

		err := &apperr.UploadMetadataError{Raw: res.Raw}
		c.logger.Error(module, "Upload completed without a document id", map[string]interface{}{
			"session_id": c.sessionID,
			"error":      err,
		})
		c.publish(context.Background(), events.UploadFailed(c.origin(), res.DisplayFilename(), err.Error()))
		return nil, err
	}

	id := res.DocumentID
	changed := c.state.activeDocumentID != id
	c.state.activeDocumentID = id
	c.state.activeFilename = res.DisplayFilename()
	c.state.activeFileExtension = res.Extension()
	c.state.clearText()
	c.state.viewport = DefaultViewport()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
	c.logger.Info(module, "Upload completed", map[string]interface{}{
		"session_id":  c.sessionID,
		"document_id": id,
	})

	return func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			c.FetchMetadata(gctx, id)
			return nil
		})
		g.Go(func() error {
			c.RefreshDocumentList(gctx)
			return nil
		})
		if changed {
			g.Go(func() error {
				c.activeChanged(gctx, id)
				return nil
			})
		}
		_ = g.Wait()

		c.publish(ctx, events.DocumentUploaded(c.origin(), id, res.DisplayFilename()))
		return nil
	}, nil
}

// FailUpload discards every placeholder after a transport-level failure.
// The active identity stays as it was.
func (c *Coordinator) FailUpload(cause error) {
	c.mu.Lock()
	filename := c.state.activeFilename
	c.state.clearPlaceholders()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)

	reason := "upload failed"
	if cause != nil {
		reason = cause.Error()
	}
	c.logger.Warn(module, "Upload failed", map[string]interface{}{
		"session_id": c.sessionID,
		"reason":     reason,
	})
	c.publish(context.Background(), events.UploadFailed(c.origin(), filename, reason))
}

// SelectDocument switches to doc and returns once its metadata fetch has
// settled. IsSwitching is cleared no sooner than the settle delay after the
// switch began, and only if no newer switch started meanwhile.
func (c *Coordinator) SelectDocument(ctx context.Context, doc backend.Document) {
	_ = c.beginSelect(doc)(ctx)
}

func (c *Coordinator) beginSelect(doc backend.Document) func(context.Context) error {
	id := doc.DocumentID

	c.mu.Lock()
	c.switchGen++
	gen := c.switchGen
	started := c.now()
	changed := c.state.activeDocumentID != id

	c.state.isSwitching = true
	c.state.clearText()
	c.state.activeDocumentID = id
	c.state.activeFilename = doc.Title
	c.state.activeFileExtension = ""
	c.state.viewport = DefaultViewport()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
	c.logger.Debug(module, "Document selected", map[string]interface{}{
		"session_id":  c.sessionID,
		"document_id": id,
		"generation":  gen,
	})

	return func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		if !IsPlaceholder(id) {
			g.Go(func() error {
				c.FetchMetadata(gctx, id)
				return nil
			})
		}
		if changed {
			g.Go(func() error {
				c.activeChanged(gctx, id)
				return nil
			})
		}
		_ = g.Wait()

		c.settleSwitch(gen, started)
		return nil
	}
}

func (c *Coordinator) settleSwitch(gen uint64, started time.Time) {
	remaining := c.settleDelay - c.now().Sub(started)
	if remaining <= 0 {
		c.finishSwitch(gen)
		return
	}
	time.AfterFunc(remaining, func() { c.finishSwitch(gen) })
}

func (c *Coordinator) finishSwitch(gen uint64) {
	c.mu.Lock()
	if gen != c.switchGen || !c.state.isSwitching {
		c.mu.Unlock()
		return
	}
	c.state.isSwitching = false
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// DeleteDocument removes doc at the backend. Nothing changes locally unless
// the backend confirms.
func (c *Coordinator) DeleteDocument(ctx context.Context, doc backend.Document) error {
	if c.user.ID == "" {
		return apperr.ErrAuthRequired
	}
	id := doc.DocumentID
	if !ValidIdentity(id) {
		c.logger.Debug(module, "Ignoring delete of invalid identity", map[string]interface{}{
			"session_id":  c.sessionID,
			"document_id": id,
		})
		return nil
	}

	if err := c.backend.DeleteDocument(ctx, c.user.ID, id); err != nil {
		c.logger.Error(module, "Failed to delete document", map[string]interface{}{
			"session_id":  c.sessionID,
			"document_id": id,
			"error":       err,
		})
		return asBackendError("delete", err)
	}

	c.mu.Lock()
	wasActive := c.state.activeDocumentID == id
	if wasActive {
		c.state.activeDocumentID = ""
		c.state.activeFilename = ""
		c.state.activeFileExtension = ""
		c.state.clearText()
	}
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
	if wasActive {
		c.activeChanged(ctx, "")
	}

	c.logger.Info(module, "Document deleted", map[string]interface{}{
		"session_id":  c.sessionID,
		"document_id": id,
		"was_active":  wasActive,
	})
	c.publish(ctx, events.DocumentDeleted(c.origin(), id))
	c.RefreshDocumentList(ctx)
	return nil
}

// FetchMetadata loads extension and texts for id. The result is committed
// only if id is still the active identity when the response arrives.
// Failures are logged and leave cached text alone.
func (c *Coordinator) FetchMetadata(ctx context.Context, id string) *backend.Metadata {
	if !ValidIdentity(id) {
		c.logger.Warn(module, "Skipping metadata fetch for invalid identity", map[string]interface{}{
			"session_id":  c.sessionID,
			"document_id": id,
		})
		return nil
	}

	meta, err := c.backend.Metadata(ctx, id)
	if err != nil {
		c.logger.Warn(module, "Metadata fetch failed", map[string]interface{}{
			"session_id":  c.sessionID,
			"document_id": id,
			"error":       err.Error(),
		})
		return nil
	}

	c.mu.Lock()
	if c.state.activeDocumentID != id {
		active := c.state.activeDocumentID
		c.mu.Unlock()
		c.logger.Debug(module, "Discarding stale metadata", map[string]interface{}{
			"session_id":  c.sessionID,
			"fetched_for": id,
			"active":      active,
		})
		return meta
	}
	c.state.activeFileExtension = extensionOrDefault(meta.FileExt)
	c.state.nativeText = meta.NativeText
	c.state.translatedText = meta.TranslatedText
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
	return meta
}

// RefreshDocumentList replaces the document list wholesale. A failed listing
// keeps the previous list.
func (c *Coordinator) RefreshDocumentList(ctx context.Context) {
	if c.user.ID == "" {
		return
	}

	docs, err := c.backend.ListDocuments(ctx, c.user.ID)
	if err != nil {
		c.logger.Warn(module, "Document list refresh failed", map[string]interface{}{
			"session_id": c.sessionID,
			"error":      err.Error(),
		})
		return
	}
	if docs == nil {
		docs = []backend.Document{}
	}

	c.mu.Lock()
	c.state.userDocuments = docs
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Coordinator) SetViewLanguage(lang ViewLanguage) error {
	if !lang.Valid() {
		return apperr.ErrInvalidViewLanguage
	}

	c.mu.Lock()
	c.state.viewLanguage = lang
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

func (c *Coordinator) SetViewport(page int, zoom float64) {
	c.mu.Lock()
	c.state.viewport = Viewport{Page: page, Zoom: zoom}.clamp()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Wait blocks until every completion started by Submit has finished.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

// commitLocked bumps the version and captures a snapshot. Caller holds mu.
func (c *Coordinator) commitLocked() Snapshot {
	c.version++
	return c.state.snapshot(c.sessionID, c.version)
}

func (c *Coordinator) notify(snap Snapshot) {
	if c.notifier != nil {
		c.notifier.NotifyState(c.sessionID, snap)
	}
}

func (c *Coordinator) activeChanged(ctx context.Context, id string) {
	if c.observer != nil {
		c.observer.ActiveDocumentChanged(ctx, id)
	}
}

func (c *Coordinator) origin() events.Origin {
	return events.Origin{UserID: c.user.ID, SessionID: c.sessionID}
}

func (c *Coordinator) publish(ctx context.Context, event events.Event) {
	if c.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn(module, "Failed to publish lifecycle event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}

func asBackendError(op string, err error) error {
	var backendErr *apperr.BackendUnavailableError
	if errors.As(err, &backendErr) {
		return err
	}
	return &apperr.BackendUnavailableError{Op: op, Err: err}
}
