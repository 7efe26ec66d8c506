// FILE: internal/service/intent_service.go
package service

import (
	"context"
	"strings"
	"sync"

	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/pkg/logger"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/store"
)

// IIntentService routes widget intents to the session's coordinator, or to
// its chat panel for chat_send.
type IIntentService interface {
	// Apply runs the intent to completion and returns the resulting view.
	Apply(ctx context.Context, sess *store.Session, req *dto.IntentRequest) (*store.Snapshot, error)
	// Submit applies the state transition before returning and leaves any
	// backend follow-up running. Follow-up errors go to onErr.
	Submit(ctx context.Context, sess *store.Session, req *dto.IntentRequest, onErr func(error)) error
	// Wait blocks until every chat turn started by Submit has finished.
	Wait()
}

type intentService struct {
	logger logger.ILogger

	inflight sync.WaitGroup
}

func NewIntentService(log logger.ILogger) IIntentService {
	if log == nil {
		log = logger.NewNop()
	}
	return &intentService{logger: log}
}

func (s *intentService) Apply(ctx context.Context, sess *store.Session, req *dto.IntentRequest) (*store.Snapshot, error) {
	if req.Kind == dto.KindChatSend {
		if _, err := sess.Chat.Send(ctx, req.Message); err != nil {
			return nil, err
		}
		snap := sess.Snapshot()
		return &snap, nil
	}

	in, err := req.ToIntent()
	if err != nil {
		return nil, err
	}
	if err := sess.Coordinator.Dispatch(ctx, in); err != nil {
		return nil, err
	}
	snap := sess.Snapshot()
	return &snap, nil
}

func (s *intentService) Submit(ctx context.Context, sess *store.Session, req *dto.IntentRequest, onErr func(error)) error {
	if req.Kind == dto.KindChatSend {
		if strings.TrimSpace(req.Message) == "" {
			return apperr.ErrEmptyMessage
		}
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			if _, err := sess.Chat.Send(context.WithoutCancel(ctx), req.Message); err != nil && onErr != nil {
				onErr(err)
			}
		}()
		return nil
	}

	in, err := req.ToIntent()
	if err != nil {
		s.logger.Debug("IntentService", "Rejected intent", map[string]interface{}{
			"session_id": sess.ID,
			"kind":       req.Kind,
			"error":      err.Error(),
		})
		return err
	}
	return sess.Coordinator.Submit(ctx, in, onErr)
}

func (s *intentService) Wait() {
	s.inflight.Wait()
}
