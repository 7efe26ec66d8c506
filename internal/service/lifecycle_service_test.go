package service

import (
	"context"
	"testing"

	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/events"
	pktNats "linguabridge-gateway/pkg/nats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSubscriber struct {
	subject string
	durable string
	handler pktNats.EventHandler
}

func (c *captureSubscriber) Subscribe(_ context.Context, subject, durableName string, handler pktNats.EventHandler) error {
	c.subject = subject
	c.durable = durableName
	c.handler = handler
	return nil
}

func TestLifecycleRefreshesSiblingSessions(t *testing.T) {
	f := newSessionFixture(t)
	laptop := f.establish(t, "user-1", "laptop")
	phone := f.establish(t, "user-1", "phone")
	other := f.establish(t, "user-2", "other")
	f.backend.resetLists()

	sub := &captureSubscriber{}
	svc := NewLifecycleService(sub, f.sessions, "gw-1", nil)
	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, DocumentEventsSubject, sub.subject)
	assert.Equal(t, "gateway-documents-gw-1", sub.durable)

	f.backend.mu.Lock()
	f.backend.docs = append(f.backend.docs, backend.Document{DocumentID: "doc_3", Title: "three.pdf"})
	f.backend.mu.Unlock()

	event := events.DocumentUploaded(events.Origin{UserID: "user-1", SessionID: "laptop"}, "doc_3", "three.pdf")
	require.NoError(t, sub.handler(context.Background(), event))

	laptop.Coordinator.Wait()
	phone.Coordinator.Wait()
	other.Coordinator.Wait()

	assert.Equal(t, 1, f.backend.lists())
	_, found := phone.Coordinator.Snapshot().FindDocument("doc_3")
	assert.True(t, found)
	_, found = laptop.Coordinator.Snapshot().FindDocument("doc_3")
	assert.False(t, found, "origin session refreshes itself")
}

func TestLifecycleIgnoresOtherEvents(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.establish(t, "user-1", "laptop")
	f.backend.resetLists()

	svc := NewLifecycleService(&captureSubscriber{}, f.sessions, "gw-1", nil)

	tests := []events.Event{
		events.FeedbackSubmitted(events.Origin{UserID: "user-1", SessionID: "phone"}, "bug", nil),
		events.BaseEvent{Type: events.TypeDocumentDeleted, Data: map[string]interface{}{}},
	}
	for _, e := range tests {
		require.NoError(t, svc.HandleDocumentEvent(context.Background(), e))
	}
	sess.Coordinator.Wait()
	assert.Zero(t, f.backend.lists())
}
