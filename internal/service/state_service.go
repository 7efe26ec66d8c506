// FILE: internal/service/state_service.go
package service

import (
	"context"
	"strconv"
	"sync"

	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/pkg/logger"
	"linguabridge-gateway/pkg/chat"
	"linguabridge-gateway/pkg/coordinator"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	// SnapshotTopic carries every state and chat snapshot from the session
	// collaborators to the websocket hub.
	SnapshotTopic = "session.snapshots"

	metaSessionID = "session_id"
	metaEpoch     = "epoch"
	metaFrameType = "frame_type"
	metaVersion   = "version"
)

// SessionNotifier is handed to a session's coordinator and chat panel.
type SessionNotifier interface {
	coordinator.Notifier
	chat.Notifier
}

type IStatePublisher interface {
	// ForSession returns the notifier for one established session. epoch
	// distinguishes a re-established session from its predecessor under the
	// same id, whose versions restart from zero.
	ForSession(epoch int64) SessionNotifier
}

type statePublisher struct {
	publisher message.Publisher
	topic     string
	logger    logger.ILogger
}

func NewStatePublisher(publisher message.Publisher, topic string, log logger.ILogger) IStatePublisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &statePublisher{publisher: publisher, topic: topic, logger: log}
}

func (p *statePublisher) ForSession(epoch int64) SessionNotifier {
	return &sessionNotifier{statePublisher: p, epoch: strconv.FormatInt(epoch, 10)}
}

type sessionNotifier struct {
	*statePublisher
	epoch string
}

func (n *sessionNotifier) NotifyState(sessionID string, snap coordinator.Snapshot) {
	n.publish(sessionID, dto.FrameState, snap.Version, snap)
}

func (n *sessionNotifier) NotifyChat(sessionID string, snap chat.Snapshot) {
	n.publish(sessionID, dto.FrameChat, snap.Version, snap)
}

func (n *sessionNotifier) publish(sessionID, frameType string, version uint64, data interface{}) {
	payload, err := dto.NewFrame(frameType, data)
	if err != nil {
		n.logger.Error("StatePublisher", "Failed to encode snapshot", map[string]interface{}{
			"session_id": sessionID,
			"frame_type": frameType,
			"error":      err,
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metaSessionID, sessionID)
	msg.Metadata.Set(metaEpoch, n.epoch)
	msg.Metadata.Set(metaFrameType, frameType)
	msg.Metadata.Set(metaVersion, strconv.FormatUint(version, 10))

	if err := n.publisher.Publish(n.topic, msg); err != nil {
		n.logger.Warn("StatePublisher", "Failed to publish snapshot", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// SessionBroadcaster delivers an encoded frame to every widget of a session.
type SessionBroadcaster interface {
	SendToSession(sessionID string, payload []byte)
}

type IStateConsumer interface {
	Consume(ctx context.Context) error
	// Forget drops the ordering cursor of an ended session.
	Forget(sessionID string)
}

type streamCursor struct {
	epoch    int64
	versions map[string]uint64
}

type stateConsumer struct {
	subscriber message.Subscriber
	topic      string
	hub        SessionBroadcaster
	logger     logger.ILogger

	mu      sync.Mutex
	cursors map[string]*streamCursor
}

func NewStateConsumer(subscriber message.Subscriber, topic string, hub SessionBroadcaster, log logger.ILogger) IStateConsumer {
	if log == nil {
		log = logger.NewNop()
	}
	return &stateConsumer{
		subscriber: subscriber,
		topic:      topic,
		hub:        hub,
		logger:     log,
		cursors:    make(map[string]*streamCursor),
	}
}

func (c *stateConsumer) Consume(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			c.processMessage(msg)
		}
	}()

	return nil
}

func (c *stateConsumer) processMessage(msg *message.Message) {
	defer msg.Ack()

	sessionID := msg.Metadata.Get(metaSessionID)
	if sessionID == "" {
		c.logger.Warn("StateConsumer", "Snapshot without session id dropped", map[string]interface{}{"uuid": msg.UUID})
		return
	}
	epoch, _ := strconv.ParseInt(msg.Metadata.Get(metaEpoch), 10, 64)
	version, _ := strconv.ParseUint(msg.Metadata.Get(metaVersion), 10, 64)
	frameType := msg.Metadata.Get(metaFrameType)

	if !c.advance(sessionID, epoch, frameType, version) {
		c.logger.Debug("StateConsumer", "Stale snapshot dropped", map[string]interface{}{
			"session_id": sessionID,
			"frame_type": frameType,
			"version":    version,
		})
		return
	}

	c.hub.SendToSession(sessionID, msg.Payload)
}

// advance reports whether the snapshot is newer than the last one forwarded
// for the same session and frame type, and records it if so.
func (c *stateConsumer) advance(sessionID string, epoch int64, frameType string, version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.cursors[sessionID]
	if !ok || epoch > cur.epoch {
		cur = &streamCursor{epoch: epoch, versions: make(map[string]uint64)}
		c.cursors[sessionID] = cur
	}
	if epoch < cur.epoch || version <= cur.versions[frameType] {
		return false
	}
	cur.versions[frameType] = version
	return true
}

func (c *stateConsumer) Forget(sessionID string) {
	c.mu.Lock()
	delete(c.cursors, sessionID)
	c.mu.Unlock()
}
