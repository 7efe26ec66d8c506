// FILE: internal/service/session_service.go
package service

import (
	"context"
	"time"

	"linguabridge-gateway/internal/pkg/logger"
	"linguabridge-gateway/internal/repository/memory"
	"linguabridge-gateway/pkg/chat"
	"linguabridge-gateway/pkg/coordinator"
	"linguabridge-gateway/pkg/events"
	"linguabridge-gateway/pkg/identity"
	"linguabridge-gateway/pkg/store"
)

const eventPublishTimeout = 5 * time.Second

// SessionBackend is what a session's coordinator and chat panel read through.
type SessionBackend interface {
	coordinator.Backend
	chat.Backend
}

// cursorForgetter is implemented by the state consumer.
type cursorForgetter interface {
	Forget(sessionID string)
}

type ISessionService interface {
	// Establish creates fresh state for the session named by claims,
	// replacing whatever was live under that id.
	Establish(ctx context.Context, claims *identity.Claims, accessToken string) *store.Session
	// Resolve returns the live session, establishing one if it expired or
	// the gateway restarted since the token was issued.
	Resolve(ctx context.Context, claims *identity.Claims, accessToken string) *store.Session
	Get(sessionID string) (*store.Session, bool)
	End(sessionID string) bool
	ForUser(userID string) []*store.Session
}

type sessionService struct {
	repo        *memory.SessionRepository
	backend     SessionBackend
	states      IStatePublisher
	cursors     cursorForgetter
	events      events.Publisher
	logger      logger.ILogger
	settleDelay time.Duration
	now         func() time.Time
}

func NewSessionService(
	repo *memory.SessionRepository,
	backend SessionBackend,
	states IStatePublisher,
	cursors cursorForgetter,
	publisher events.Publisher,
	log logger.ILogger,
	settleDelay time.Duration,
) ISessionService {
	if log == nil {
		log = logger.NewNop()
	}
	s := &sessionService{
		repo:        repo,
		backend:     backend,
		states:      states,
		cursors:     cursors,
		events:      publisher,
		logger:      log,
		settleDelay: settleDelay,
		now:         time.Now,
	}
	repo.OnExpire(s.ended)
	return s
}

func (s *sessionService) Establish(ctx context.Context, claims *identity.Claims, accessToken string) *store.Session {
	now := s.now()
	sess := &store.Session{
		ID:            claims.SessionID,
		UserID:        claims.UserID,
		Email:         claims.Email,
		AccessToken:   accessToken,
		EstablishedAt: now,
	}

	notifier := s.states.ForSession(now.UnixNano())
	sess.Chat = chat.NewPanel(sess.ID, sess.UserID, s.backend, notifier, s.logger)
	sess.Coordinator = coordinator.New(coordinator.Options{
		SessionID:   sess.ID,
		User:        sess.User(),
		Backend:     s.backend,
		Notifier:    notifier,
		Observer:    sess.Chat,
		Events:      s.events,
		Logger:      s.logger,
		SettleDelay: s.settleDelay,
	})

	_, replaced := s.repo.Get(sess.ID)
	s.repo.Save(sess)

	s.logger.Info("SessionService", "Session established", map[string]interface{}{
		"session_id": sess.ID,
		"user_id":    sess.UserID,
		"replaced":   replaced,
	})

	// Initial list load; tracked by the coordinator so Wait covers it.
	_ = sess.Coordinator.Submit(ctx, coordinator.Intent{Kind: coordinator.IntentDocumentsRefreshRequested}, nil)

	s.publish(ctx, events.SessionEstablished(events.Origin{UserID: sess.UserID, SessionID: sess.ID}))
	return sess
}

func (s *sessionService) Resolve(ctx context.Context, claims *identity.Claims, accessToken string) *store.Session {
	if sess, ok := s.repo.Get(claims.SessionID); ok && sess.UserID == claims.UserID {
		return sess
	}
	return s.Establish(ctx, claims, accessToken)
}

func (s *sessionService) Get(sessionID string) (*store.Session, bool) {
	return s.repo.Get(sessionID)
}

// End discards the session. session.ended is published by the expiry hook,
// which the repository also fires on explicit deletes.
func (s *sessionService) End(sessionID string) bool {
	_, ok := s.repo.Delete(sessionID)
	return ok
}

func (s *sessionService) ForUser(userID string) []*store.Session {
	return s.repo.ForUser(userID)
}

func (s *sessionService) ended(sess *store.Session) {
	if s.cursors != nil {
		s.cursors.Forget(sess.ID)
	}
	s.logger.Info("SessionService", "Session ended", map[string]interface{}{
		"session_id": sess.ID,
		"user_id":    sess.UserID,
	})
	s.publish(context.Background(), events.SessionEnded(events.Origin{UserID: sess.UserID, SessionID: sess.ID}))
}

func (s *sessionService) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("SessionService", "Failed to publish lifecycle event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
