// FILE: internal/service/lifecycle_service.go
package service

import (
	"context"

	"linguabridge-gateway/internal/pkg/logger"
	"linguabridge-gateway/pkg/coordinator"
	"linguabridge-gateway/pkg/events"
	pktNats "linguabridge-gateway/pkg/nats"
)

const DocumentEventsSubject = "events.document.>"

type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

// ILifecycleService keeps every device of a user in step: a document
// uploaded or deleted in one session refreshes the list of all the user's
// other sessions on this instance.
type ILifecycleService interface {
	Start(ctx context.Context) error
	HandleDocumentEvent(ctx context.Context, event events.Event) error
}

type lifecycleService struct {
	subscriber EventSubscriber
	sessions   ISessionService
	instanceID string
	logger     logger.ILogger
}

func NewLifecycleService(subscriber EventSubscriber, sessions ISessionService, instanceID string, log logger.ILogger) ILifecycleService {
	if log == nil {
		log = logger.NewNop()
	}
	return &lifecycleService{
		subscriber: subscriber,
		sessions:   sessions,
		instanceID: instanceID,
		logger:     log,
	}
}

// Start subscribes with a durable named after the instance, so each gateway
// instance sees every document event once.
func (s *lifecycleService) Start(ctx context.Context) error {
	return s.subscriber.Subscribe(ctx, DocumentEventsSubject, "gateway-documents-"+s.instanceID, s.HandleDocumentEvent)
}

func (s *lifecycleService) HandleDocumentEvent(ctx context.Context, event events.Event) error {
	switch event.EventType() {
	case events.TypeDocumentUploaded, events.TypeDocumentDeleted:
	default:
		return nil
	}

	userID := events.StringField(event, "user_id")
	if userID == "" {
		return nil
	}
	origin := events.StringField(event, "session_id")

	refreshed := 0
	for _, sess := range s.sessions.ForUser(userID) {
		if sess.ID == origin {
			continue
		}
		_ = sess.Coordinator.Submit(ctx, coordinator.Intent{Kind: coordinator.IntentDocumentsRefreshRequested}, nil)
		refreshed++
	}

	if refreshed > 0 {
		s.logger.Info("LifecycleService", "Refreshing sibling sessions", map[string]interface{}{
			"event":       event.EventType(),
			"user_id":     userID,
			"document_id": events.StringField(event, "document_id"),
			"sessions":    refreshed,
		})
	}
	return nil
}
