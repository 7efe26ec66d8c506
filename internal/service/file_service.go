// FILE: internal/service/file_service.go
package service

import (
	"context"

	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/coordinator"
)

type FileBackend interface {
	OpenFile(ctx context.Context, documentID, lang string) (*backend.Stream, error)
	OpenAudio(ctx context.Context, documentID string) (*backend.Stream, error)
	OpenTranslationPDF(ctx context.Context, documentID string) (*backend.Stream, error)
}

// IFileService proxies binary document streams. Callers close the returned
// stream body.
type IFileService interface {
	File(ctx context.Context, documentID, lang string) (*backend.Stream, error)
	Audio(ctx context.Context, documentID string) (*backend.Stream, error)
	TranslationPDF(ctx context.Context, documentID string) (*backend.Stream, error)
}

type fileService struct {
	backend FileBackend
}

func NewFileService(b FileBackend) IFileService {
	return &fileService{backend: b}
}

func (s *fileService) File(ctx context.Context, documentID, lang string) (*backend.Stream, error) {
	if err := streamable(documentID); err != nil {
		return nil, err
	}
	if lang != "" {
		if _, err := coordinator.ParseViewLanguage(lang); err != nil {
			return nil, err
		}
	}
	return s.backend.OpenFile(ctx, documentID, lang)
}

func (s *fileService) Audio(ctx context.Context, documentID string) (*backend.Stream, error) {
	if err := streamable(documentID); err != nil {
		return nil, err
	}
	return s.backend.OpenAudio(ctx, documentID)
}

func (s *fileService) TranslationPDF(ctx context.Context, documentID string) (*backend.Stream, error) {
	if err := streamable(documentID); err != nil {
		return nil, err
	}
	return s.backend.OpenTranslationPDF(ctx, documentID)
}

func streamable(documentID string) error {
	if !coordinator.ValidIdentity(documentID) {
		return &apperr.InvalidDocumentIdentityError{ID: documentID}
	}
	if coordinator.IsPlaceholder(documentID) {
		return apperr.ErrDocumentProcessing
	}
	return nil
}
