// FILE: internal/service/chat_service.go
package service

import (
	"context"

	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/chat"
	"linguabridge-gateway/pkg/store"
)

type IChatService interface {
	Transcript(sess *store.Session) chat.Snapshot
	Send(ctx context.Context, sess *store.Session, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
}

type chatService struct{}

func NewChatService() IChatService {
	return &chatService{}
}

func (s *chatService) Transcript(sess *store.Session) chat.Snapshot {
	return sess.Chat.Snapshot()
}

// Send returns the transcript alongside any error so a failed turn still
// shows the text the panel put in place of the reply.
func (s *chatService) Send(ctx context.Context, sess *store.Session, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	if sess == nil {
		return nil, apperr.ErrAuthRequired
	}
	reply, err := sess.Chat.Send(ctx, req.Message)
	return &dto.SendChatResponse{Reply: reply, Transcript: sess.Chat.Snapshot()}, err
}
