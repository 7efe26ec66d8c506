package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/repository/memory"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/chat"
	"linguabridge-gateway/pkg/coordinator"
	"linguabridge-gateway/pkg/events"
	"linguabridge-gateway/pkg/identity"
	"linguabridge-gateway/pkg/store"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type fakeBackend struct {
	mu sync.Mutex

	docs      []backend.Document
	meta      map[string]*backend.Metadata
	listCalls int
	deleted   []string

	uploadRes   backend.UploadResult
	uploadErr   error
	uploads     []string
	feedback    []backend.FeedbackRequest
	feedbackErr error

	chatReply string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		docs: []backend.Document{
			{DocumentID: "doc_1", Title: "one.pdf"},
			{DocumentID: "doc_2", Title: "two.pdf"},
		},
		meta: map[string]*backend.Metadata{
			"doc_1": {FileExt: "pdf", NativeText: "native one", TranslatedText: "english one"},
			"doc_2": {FileExt: "png", NativeText: "native two", TranslatedText: "english two"},
		},
		chatReply: "an answer",
	}
}

func (b *fakeBackend) Metadata(_ context.Context, id string) (*backend.Metadata, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.meta[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, &apperr.BackendUnavailableError{Op: "metadata", Status: 404}
}

func (b *fakeBackend) ListDocuments(_ context.Context, _ string) ([]backend.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	out := make([]backend.Document, len(b.docs))
	copy(out, b.docs)
	return out, nil
}

func (b *fakeBackend) DeleteDocument(_ context.Context, _ string, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, id)
	kept := b.docs[:0]
	for _, d := range b.docs {
		if d.DocumentID != id {
			kept = append(kept, d)
		}
	}
	b.docs = kept
	return nil
}

func (b *fakeBackend) Chat(_ context.Context, _ backend.ChatRequest) (string, error) {
	return b.chatReply, nil
}

func (b *fakeBackend) ChatHistory(_ context.Context, _, _ string) ([]backend.ChatMessage, error) {
	return []backend.ChatMessage{}, nil
}

func (b *fakeBackend) Upload(_ context.Context, _ string, filename string, file io.Reader) (backend.UploadResult, error) {
	_, _ = io.ReadAll(file)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, filename)
	if b.uploadErr != nil {
		return backend.UploadResult{}, b.uploadErr
	}
	res := b.uploadRes
	if res.DocumentID != "" {
		b.docs = append(b.docs, backend.Document{DocumentID: res.DocumentID, Title: res.DisplayFilename()})
		b.meta[res.DocumentID] = &backend.Metadata{FileExt: res.Extension(), NativeText: "fresh", TranslatedText: "fresh en"}
	}
	return res, nil
}

func (b *fakeBackend) SubmitFeedback(_ context.Context, req backend.FeedbackRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.feedbackErr != nil {
		return b.feedbackErr
	}
	b.feedback = append(b.feedback, req)
	return nil
}

func (b *fakeBackend) lists() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls
}

func (b *fakeBackend) resetLists() {
	b.mu.Lock()
	b.listCalls = 0
	b.mu.Unlock()
}

type recordingEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEvents) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

type recordingHub struct {
	mu     sync.Mutex
	frames map[string][]dto.Frame
}

func newRecordingHub() *recordingHub {
	return &recordingHub{frames: make(map[string][]dto.Frame)}
}

func (h *recordingHub) SendToSession(sessionID string, payload []byte) {
	var f dto.Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return
	}
	h.mu.Lock()
	h.frames[sessionID] = append(h.frames[sessionID], f)
	h.mu.Unlock()
}

func (h *recordingHub) framesFor(sessionID string) []dto.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]dto.Frame, len(h.frames[sessionID]))
	copy(out, h.frames[sessionID])
	return out
}

type nopStates struct{}

func (nopStates) ForSession(int64) SessionNotifier { return nopNotifier{} }

type nopNotifier struct{}

func (nopNotifier) NotifyState(string, coordinator.Snapshot) {}
func (nopNotifier) NotifyChat(string, chat.Snapshot)         {}

type recordingForgetter struct {
	mu      sync.Mutex
	forgets []string
}

func (f *recordingForgetter) Forget(sessionID string) {
	f.mu.Lock()
	f.forgets = append(f.forgets, sessionID)
	f.mu.Unlock()
}

type sessionFixture struct {
	backend  *fakeBackend
	events   *recordingEvents
	repo     *memory.SessionRepository
	cursors  *recordingForgetter
	sessions ISessionService
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		backend: newFakeBackend(),
		events:  &recordingEvents{},
		repo:    memory.NewSessionRepository(time.Hour),
		cursors: &recordingForgetter{},
	}
	f.sessions = NewSessionService(f.repo, f.backend, nopStates{}, f.cursors, f.events, nil, 0)
	return f
}

func claimsFor(userID, sessionID string) *identity.Claims {
	return &identity.Claims{UserID: userID, Email: userID + "@example.com", SessionID: sessionID}
}

// establish opens a session and waits for its initial list load.
func (f *sessionFixture) establish(t *testing.T, userID, sessionID string) *store.Session {
	t.Helper()
	sess := f.sessions.Establish(context.Background(), claimsFor(userID, sessionID), "token-"+sessionID)
	require.NotNil(t, sess)
	sess.Coordinator.Wait()
	return sess
}

func coordinatorFile(name string) coordinator.FileInfo {
	return coordinator.FileInfo{Name: name, Size: 3}
}
