package dto

import (
	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/coordinator"
)

type UploadAcceptedResponse struct {
	PlaceholderID string `json:"placeholder_id"`
	Filename      string `json:"filename"`
}

type UploadResultResponse struct {
	DocumentID string               `json:"document_id"`
	State      coordinator.Snapshot `json:"state"`
}

type DocumentListResponse struct {
	Documents []backend.Document `json:"documents"`
}

type FileQuery struct {
	Lang string `query:"lang" validate:"omitempty,oneof=native english"`
}
