// FILE: internal/service/document_service.go
package service

import (
	"context"

	"linguabridge-gateway/internal/pkg/logger"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/coordinator"
	"linguabridge-gateway/pkg/store"
)

type IDocumentService interface {
	List(ctx context.Context, sess *store.Session) ([]backend.Document, error)
	Select(ctx context.Context, sess *store.Session, documentID string) (coordinator.Snapshot, error)
	Delete(ctx context.Context, sess *store.Session, documentID string) (coordinator.Snapshot, error)
}

type documentService struct {
	logger logger.ILogger
}

func NewDocumentService(log logger.ILogger) IDocumentService {
	if log == nil {
		log = logger.NewNop()
	}
	return &documentService{logger: log}
}

func (s *documentService) List(ctx context.Context, sess *store.Session) ([]backend.Document, error) {
	if sess == nil || sess.UserID == "" {
		return nil, apperr.ErrAuthRequired
	}
	sess.Coordinator.RefreshDocumentList(ctx)
	return sess.Coordinator.Snapshot().UserDocuments, nil
}

// Select switches to a document from the user's list and waits until its
// metadata fetch has settled. The list is refreshed once if the id is not in
// it, since another device may have uploaded it.
func (s *documentService) Select(ctx context.Context, sess *store.Session, documentID string) (coordinator.Snapshot, error) {
	doc, err := s.find(ctx, sess, documentID)
	if err != nil {
		return coordinator.Snapshot{}, err
	}

	err = sess.Coordinator.Dispatch(ctx, coordinator.Intent{
		Kind:     coordinator.IntentDocumentSelected,
		Document: doc,
	})
	return sess.Coordinator.Snapshot(), err
}

func (s *documentService) Delete(ctx context.Context, sess *store.Session, documentID string) (coordinator.Snapshot, error) {
	if sess == nil || sess.UserID == "" {
		return coordinator.Snapshot{}, apperr.ErrAuthRequired
	}
	if !coordinator.ValidIdentity(documentID) {
		return coordinator.Snapshot{}, &apperr.InvalidDocumentIdentityError{ID: documentID}
	}

	doc, ok := sess.Coordinator.Snapshot().FindDocument(documentID)
	if !ok {
		doc = backend.Document{DocumentID: documentID}
	}

	if err := sess.Coordinator.DeleteDocument(ctx, doc); err != nil {
		return coordinator.Snapshot{}, err
	}
	s.logger.Info("DocumentService", "Document deleted", map[string]interface{}{
		"session_id":  sess.ID,
		"document_id": documentID,
	})
	return sess.Coordinator.Snapshot(), nil
}

func (s *documentService) find(ctx context.Context, sess *store.Session, documentID string) (backend.Document, error) {
	if sess == nil || sess.UserID == "" {
		return backend.Document{}, apperr.ErrAuthRequired
	}
	if !coordinator.ValidIdentity(documentID) {
		return backend.Document{}, &apperr.InvalidDocumentIdentityError{ID: documentID}
	}

	if doc, ok := sess.Coordinator.Snapshot().FindDocument(documentID); ok {
		return doc, nil
	}
	sess.Coordinator.RefreshDocumentList(ctx)
	if doc, ok := sess.Coordinator.Snapshot().FindDocument(documentID); ok {
		return doc, nil
	}
	return backend.Document{}, apperr.ErrDocumentNotFound
}
