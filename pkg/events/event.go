package events

import (
	"context"
	"time"
)

// Event defines the contract for all lifecycle events.
type Event interface {
	// EventType returns the subject suffix for this event (e.g., "document.deleted").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher is satisfied by the NATS publisher and by test recorders.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

const (
	TypeDocumentUploaded   = "document.uploaded"
	TypeDocumentDeleted    = "document.deleted"
	TypeUploadFailed       = "upload.failed"
	TypeFeedbackSubmitted  = "feedback.submitted"
	TypeSessionEstablished = "session.established"
	TypeSessionEnded       = "session.ended"
)

// BaseEvent is the only Event implementation the gateway needs; the payload
// keys are fixed by the constructors below.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Origin identifies the session that caused an event.
type Origin struct {
	UserID    string
	SessionID string
}

func newEvent(eventType string, origin Origin, extra map[string]interface{}) BaseEvent {
	data := map[string]interface{}{
		"user_id":    origin.UserID,
		"session_id": origin.SessionID,
	}
	for k, v := range extra {
		data[k] = v
	}
	now := time.Now().UTC()
	data["occurred_at"] = now.Format(time.RFC3339Nano)
	return BaseEvent{Type: eventType, Data: data, OccurredAt: now}
}

func DocumentUploaded(origin Origin, documentID, filename string) BaseEvent {
	return newEvent(TypeDocumentUploaded, origin, map[string]interface{}{
		"document_id": documentID,
		"filename":    filename,
	})
}

func DocumentDeleted(origin Origin, documentID string) BaseEvent {
	return newEvent(TypeDocumentDeleted, origin, map[string]interface{}{
		"document_id": documentID,
	})
}

func UploadFailed(origin Origin, filename, reason string) BaseEvent {
	return newEvent(TypeUploadFailed, origin, map[string]interface{}{
		"filename": filename,
		"reason":   reason,
	})
}

func FeedbackSubmitted(origin Origin, feedbackType string, rating *int) BaseEvent {
	extra := map[string]interface{}{"feedback_type": feedbackType}
	if rating != nil {
		extra["rating"] = *rating
	}
	return newEvent(TypeFeedbackSubmitted, origin, extra)
}

func SessionEstablished(origin Origin) BaseEvent {
	return newEvent(TypeSessionEstablished, origin, nil)
}

func SessionEnded(origin Origin) BaseEvent {
	return newEvent(TypeSessionEnded, origin, nil)
}

// StringField reads a string payload value, tolerating missing keys.
func StringField(e Event, key string) string {
	if v, ok := e.Payload()[key].(string); ok {
		return v
	}
	return ""
}
