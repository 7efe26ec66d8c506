// FILE: internal/service/feedback_service.go
package service

import (
	"context"
	"strings"
	"time"

	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/pkg/logger"
	"linguabridge-gateway/internal/pkg/mailer"
	"linguabridge-gateway/internal/pkg/serverutils"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/events"
	"linguabridge-gateway/pkg/store"
)

type FeedbackBackend interface {
	SubmitFeedback(ctx context.Context, req backend.FeedbackRequest) error
}

// FeedbackNotifier forwards accepted feedback to the operator inbox.
type FeedbackNotifier interface {
	SendFeedbackNotice(notice mailer.FeedbackNotice) error
}

type IFeedbackService interface {
	Submit(ctx context.Context, sess *store.Session, req *dto.FeedbackRequest) error
}

type feedbackService struct {
	backend  FeedbackBackend
	events   events.Publisher
	notifier FeedbackNotifier
	logger   logger.ILogger
}

// NewFeedbackService accepts a nil publisher or notifier; the matching side
// effect is then skipped.
func NewFeedbackService(b FeedbackBackend, publisher events.Publisher, notifier FeedbackNotifier, log logger.ILogger) IFeedbackService {
	if log == nil {
		log = logger.NewNop()
	}
	return &feedbackService{backend: b, events: publisher, notifier: notifier, logger: log}
}

func (s *feedbackService) Submit(ctx context.Context, sess *store.Session, req *dto.FeedbackRequest) error {
	req.FeedbackText = strings.TrimSpace(req.FeedbackText)
	if req.FeedbackType == "" {
		req.FeedbackType = dto.FeedbackGeneral
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if sess == nil || sess.UserID == "" {
		return apperr.ErrAuthRequired
	}

	err := s.backend.SubmitFeedback(ctx, backend.FeedbackRequest{
		UserID:       sess.UserID,
		FeedbackText: req.FeedbackText,
		FeedbackType: req.FeedbackType,
		Rating:       req.Rating,
	})
	if err != nil {
		s.logger.Error("FeedbackService", "Failed to submit feedback", map[string]interface{}{
			"user_id": sess.UserID,
			"error":   err,
		})
		return err
	}

	s.logger.Info("FeedbackService", "Feedback submitted", map[string]interface{}{
		"user_id":       sess.UserID,
		"feedback_type": req.FeedbackType,
	})

	if s.events != nil {
		event := events.FeedbackSubmitted(events.Origin{UserID: sess.UserID, SessionID: sess.ID}, req.FeedbackType, req.Rating)
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
		defer cancel()
		if err := s.events.Publish(pubCtx, event); err != nil {
			s.logger.Warn("FeedbackService", "Failed to publish lifecycle event", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}

	if s.notifier != nil {
		notice := mailer.FeedbackNotice{
			UserID:      sess.UserID,
			UserEmail:   sess.Email,
			SessionID:   sess.ID,
			Type:        req.FeedbackType,
			Rating:      req.Rating,
			Text:        req.FeedbackText,
			SubmittedAt: time.Now(),
		}
		go func() {
			if err := s.notifier.SendFeedbackNotice(notice); err != nil {
				s.logger.Warn("FeedbackService", "Failed to forward feedback by email", map[string]interface{}{
					"user_id": notice.UserID,
					"error":   err.Error(),
				})
			}
		}()
	}
	return nil
}
