// FILE: internal/service/upload_service.go
package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/pkg/logger"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/coordinator"
	"linguabridge-gateway/pkg/store"
)

const DefaultUploadTimeout = 5 * time.Minute

type UploadBackend interface {
	Upload(ctx context.Context, userID, filename string, file io.Reader) (backend.UploadResult, error)
}

type IUploadService interface {
	// Begin makes a placeholder active and returns it straight away; the
	// transfer finishes in the background and failures reach the session's
	// widgets as error frames.
	Begin(ctx context.Context, sess *store.Session, filename string, data []byte) (string, error)
	// Run uploads and waits for the durable identity.
	Run(ctx context.Context, sess *store.Session, filename string, data []byte) (string, error)
	// Wait blocks until every background transfer has finished.
	Wait()
}

type uploadService struct {
	backend UploadBackend
	hub     SessionBroadcaster
	timeout time.Duration
	logger  logger.ILogger

	inflight sync.WaitGroup
}

func NewUploadService(b UploadBackend, hub SessionBroadcaster, timeout time.Duration, log logger.ILogger) IUploadService {
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &uploadService{backend: b, hub: hub, timeout: timeout, logger: log}
}

func (s *uploadService) Begin(ctx context.Context, sess *store.Session, filename string, data []byte) (string, error) {
	placeholder, err := s.start(sess, filename, data)
	if err != nil {
		return "", err
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if _, err := s.transfer(context.WithoutCancel(ctx), sess, filename, data); err != nil && s.hub != nil {
			s.hub.SendToSession(sess.ID, dto.ErrorFrame(err))
		}
	}()

	return placeholder, nil
}

func (s *uploadService) Run(ctx context.Context, sess *store.Session, filename string, data []byte) (string, error) {
	if _, err := s.start(sess, filename, data); err != nil {
		return "", err
	}
	return s.transfer(ctx, sess, filename, data)
}

func (s *uploadService) Wait() {
	s.inflight.Wait()
}

func (s *uploadService) start(sess *store.Session, filename string, data []byte) (string, error) {
	if sess == nil || sess.UserID == "" {
		return "", apperr.ErrAuthRequired
	}
	if strings.TrimSpace(filename) == "" || len(data) == 0 {
		return "", apperr.ErrInvalidFile
	}
	return sess.Coordinator.StartUpload(coordinator.FileInfo{Name: filename, Size: int64(len(data))}), nil
}

func (s *uploadService) transfer(ctx context.Context, sess *store.Session, filename string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.backend.Upload(ctx, sess.UserID, filename, bytes.NewReader(data))
	if err != nil {
		s.logger.Error("UploadService", "Upload failed", map[string]interface{}{
			"session_id": sess.ID,
			"filename":   filename,
			"error":      err,
		})
		sess.Coordinator.FailUpload(err)
		return "", err
	}

	if err := sess.Coordinator.CompleteUpload(ctx, res); err != nil {
		return "", err
	}
	return res.DocumentID, nil
}
