// Package chat keeps the per-document chat transcript of a session. The
// transcript follows the active document: it is reloaded on every switch and
// emptied when nothing is active.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"linguabridge-gateway/internal/pkg/logger"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/coordinator"

	"github.com/google/uuid"
)

const (
	module = "ChatPanel"

	RoleUser      = "user"
	RoleAssistant = "assistant"

	ThinkingText     = "Thinking..."
	NoDocumentText   = "Please upload a document first to start chatting about it."
	LoginText        = "Please log in to use the chat feature."
	BackendErrorText = "Sorry, I'm having trouble processing your request. Please try again."
	OfflineText      = "Sorry, I'm unable to process your request right now. Please check your connection and try again."
)

type Backend interface {
	Chat(ctx context.Context, req backend.ChatRequest) (string, error)
	ChatHistory(ctx context.Context, userID, documentID string) ([]backend.ChatMessage, error)
}

type Notifier interface {
	NotifyChat(sessionID string, snap Snapshot)
}

type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Snapshot struct {
	Version    uint64    `json:"version"`
	DocumentID string    `json:"document_id"`
	Loading    bool      `json:"loading"`
	Messages   []Message `json:"messages"`
}

type Panel struct {
	sessionID string
	userID    string
	backend   Backend
	notifier  Notifier
	logger    logger.ILogger

	mu         sync.Mutex
	documentID string
	loading    bool
	messages   []Message
	generation uint64
	version    uint64
}

var _ coordinator.ActiveDocumentObserver = (*Panel)(nil)

func NewPanel(sessionID, userID string, b Backend, n Notifier, l logger.ILogger) *Panel {
	if l == nil {
		l = logger.NewNop()
	}
	return &Panel{
		sessionID: sessionID,
		userID:    userID,
		backend:   b,
		notifier:  n,
		logger:    l,
		messages:  []Message{},
	}
}

func (p *Panel) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// ActiveDocumentChanged reloads the transcript for documentID. A load that
// finishes after another switch is dropped.
func (p *Panel) ActiveDocumentChanged(ctx context.Context, documentID string) {
	loadable := p.userID != "" && coordinator.ValidIdentity(documentID) && !coordinator.IsPlaceholder(documentID)

	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.documentID = documentID
	p.messages = []Message{}
	p.loading = loadable
	snap := p.commitLocked()
	p.mu.Unlock()
	p.notify(snap)

	if !loadable {
		return
	}

	history, err := p.backend.ChatHistory(ctx, p.userID, documentID)
	if err != nil {
		p.logger.Warn(module, "Failed to load chat history", map[string]interface{}{
			"session_id":  p.sessionID,
			"document_id": documentID,
			"error":       err.Error(),
		})
	}

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.logger.Debug(module, "Discarding stale chat history", map[string]interface{}{
			"session_id":  p.sessionID,
			"document_id": documentID,
		})
		return
	}
	p.messages = make([]Message, 0, len(history))
	for _, m := range history {
		p.messages = append(p.messages, Message{ID: m.ID, Role: m.Role, Content: m.Content})
	}
	p.loading = false
	snap = p.commitLocked()
	p.mu.Unlock()
	p.notify(snap)
}

// Send posts text about the active document and returns the assistant turn
// as it ended up in the transcript.
func (p *Panel) Send(ctx context.Context, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, apperr.ErrEmptyMessage
	}

	p.mu.Lock()
	documentID := p.documentID
	if !coordinator.ValidIdentity(documentID) {
		reply := Message{ID: uuid.NewString(), Role: RoleAssistant, Content: NoDocumentText}
		p.messages = append(p.messages, reply)
		snap := p.commitLocked()
		p.mu.Unlock()
		p.notify(snap)
		return reply, nil
	}

	gen := p.generation
	pending := Message{ID: uuid.NewString(), Role: RoleAssistant, Content: ThinkingText}
	p.messages = append(p.messages,
		Message{ID: uuid.NewString(), Role: RoleUser, Content: text},
		pending,
	)
	snap := p.commitLocked()
	p.mu.Unlock()
	p.notify(snap)

	if p.userID == "" {
		pending.Content = LoginText
		p.resolve(gen, pending)
		return pending, apperr.ErrAuthRequired
	}

	reply, err := p.backend.Chat(ctx, backend.ChatRequest{
		DocumentID: documentID,
		UserID:     p.userID,
		Message:    text,
	})
	if err != nil {
		p.logger.Error(module, "Chat request failed", map[string]interface{}{
			"session_id":  p.sessionID,
			"document_id": documentID,
			"error":       err,
		})
		pending.Content = failureText(err)
		p.resolve(gen, pending)
		return pending, err
	}

	pending.Content = reply
	p.resolve(gen, pending)
	return pending, nil
}

// resolve replaces the placeholder turn unless the transcript moved on to
// another document in the meantime.
func (p *Panel) resolve(gen uint64, msg Message) {
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.logger.Debug(module, "Dropping chat reply for a previous document", map[string]interface{}{
			"session_id": p.sessionID,
		})
		return
	}
	for i := range p.messages {
		if p.messages[i].ID == msg.ID {
			p.messages[i] = msg
			break
		}
	}
	snap := p.commitLocked()
	p.mu.Unlock()
	p.notify(snap)
}

func failureText(err error) string {
	var backendErr *apperr.BackendUnavailableError
	if errors.As(err, &backendErr) && backendErr.Status != 0 {
		if backendErr.Message != "" {
			return backendErr.Message
		}
		return BackendErrorText
	}
	return OfflineText
}

func (p *Panel) commitLocked() Snapshot {
	p.version++
	return p.snapshotLocked()
}

func (p *Panel) snapshotLocked() Snapshot {
	msgs := make([]Message, len(p.messages))
	copy(msgs, p.messages)
	return Snapshot{
		Version:    p.version,
		DocumentID: p.documentID,
		Loading:    p.loading,
		Messages:   msgs,
	}
}

func (p *Panel) notify(snap Snapshot) {
	if p.notifier != nil {
		p.notifier.NotifyChat(p.sessionID, snap)
	}
}
