package dto

import "linguabridge-gateway/pkg/chat"

type SendChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

type SendChatResponse struct {
	Reply      chat.Message  `json:"reply"`
	Transcript chat.Snapshot `json:"transcript"`
}
