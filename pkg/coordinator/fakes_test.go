package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/events"
)

type fakeBackend struct {
	mu sync.Mutex

	metadata  map[string]*backend.Metadata
	gates     map[string]chan struct{}
	metaCalls []string

	docs      []backend.Document
	listErr   error
	listCalls int

	deleteErr error
	deleted   []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		metadata: map[string]*backend.Metadata{},
		gates:    map[string]chan struct{}{},
	}
}

// hold makes the next Metadata call for id block until release(id).
func (f *fakeBackend) hold(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[id] = make(chan struct{})
}

func (f *fakeBackend) release(id string) {
	f.mu.Lock()
	gate := f.gates[id]
	delete(f.gates, id)
	f.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

func (f *fakeBackend) Metadata(ctx context.Context, id string) (*backend.Metadata, error) {
	f.mu.Lock()
	f.metaCalls = append(f.metaCalls, id)
	gate := f.gates[id]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.metadata[id]
	if !ok {
		return nil, &apperr.BackendUnavailableError{Op: "metadata", Status: 404, Message: "Document not found"}
	}
	cp := *meta
	return &cp, nil
}

func (f *fakeBackend) ListDocuments(ctx context.Context, userID string) ([]backend.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]backend.Document, len(f.docs))
	copy(out, f.docs)
	return out, nil
}

func (f *fakeBackend) DeleteDocument(ctx context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	kept := f.docs[:0]
	for _, d := range f.docs {
		if d.DocumentID != id {
			kept = append(kept, d)
		}
	}
	f.docs = kept
	return nil
}

func (f *fakeBackend) calledFor(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.metaCalls {
		if c == id {
			return true
		}
	}
	return false
}

func (f *fakeBackend) metadataCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.metaCalls...)
}

func (f *fakeBackend) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type recordingNotifier struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (n *recordingNotifier) NotifyState(sessionID string, snap Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snaps = append(n.snaps, snap)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.snaps)
}

type recordingObserver struct {
	mu  sync.Mutex
	ids []string
}

func (o *recordingObserver) ActiveDocumentChanged(ctx context.Context, id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ids = append(o.ids, id)
}

func (o *recordingObserver) seen() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.ids...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type harness struct {
	c         *Coordinator
	backend   *fakeBackend
	notifier  *recordingNotifier
	observer  *recordingObserver
	publisher *recordingPublisher
}

func newHarness(t *testing.T, opts ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		backend:   newFakeBackend(),
		notifier:  &recordingNotifier{},
		observer:  &recordingObserver{},
		publisher: &recordingPublisher{},
	}
	o := Options{
		SessionID: "sess-1",
		User:      User{ID: "user-1", Email: "ana@example.com"},
		Backend:   h.backend,
		Notifier:  h.notifier,
		Observer:  h.observer,
		Events:    h.publisher,
		Now:       func() time.Time { return time.UnixMilli(1700000000000) },
	}
	for _, fn := range opts {
		fn(&o)
	}
	h.c = New(o)
	return h
}

var errBoom = errors.New("boom")
