package coordinator

import (
	"context"

	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"
)

type IntentKind string

const (
	IntentUploadStarted             IntentKind = "upload_started"
	IntentUploadCompleted           IntentKind = "upload_completed"
	IntentUploadFailed              IntentKind = "upload_failed"
	IntentDocumentSelected          IntentKind = "document_selected"
	IntentDocumentDeleteRequested   IntentKind = "document_delete_requested"
	IntentViewLanguageChanged       IntentKind = "view_language_changed"
	IntentViewportChanged           IntentKind = "viewport_changed"
	IntentDocumentsRefreshRequested IntentKind = "documents_refresh_requested"
)

// Intent is what a widget asks the coordinator to do. Only the fields that
// belong to Kind are read.
type Intent struct {
	Kind     IntentKind
	File     FileInfo             // upload_started
	Upload   backend.UploadResult // upload_completed
	Cause    error                // upload_failed
	Document backend.Document     // document_selected, document_delete_requested
	Language ViewLanguage         // view_language_changed
	Page     int                  // viewport_changed
	Zoom     float64              // viewport_changed
}

// Dispatch applies the intent and waits for any backend follow-up to settle.
func (c *Coordinator) Dispatch(ctx context.Context, in Intent) error {
	run, err := c.begin(in)
	if err != nil || run == nil {
		return err
	}
	return run(ctx)
}

// Submit applies the synchronous part of the intent before returning and
// runs the backend follow-up in the background. Follow-up errors go to onErr.
// Websocket read pumps use this so a slow fetch never holds up the next
// intent from the same widget.
func (c *Coordinator) Submit(ctx context.Context, in Intent, onErr func(error)) error {
	run, err := c.begin(in)
	if err != nil || run == nil {
		return err
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if err := run(context.WithoutCancel(ctx)); err != nil && onErr != nil {
			onErr(err)
		}
	}()
	return nil
}

// begin performs the state transition for in and returns the part that has
// to wait on the backend, if any.
func (c *Coordinator) begin(in Intent) (func(context.Context) error, error) {
	switch in.Kind {
	case IntentUploadStarted:
		c.StartUpload(in.File)
		return nil, nil

	case IntentUploadCompleted:
		return c.beginComplete(in.Upload)

	case IntentUploadFailed:
		c.FailUpload(in.Cause)
		return nil, nil

	case IntentDocumentSelected:
		return c.beginSelect(in.Document), nil

	case IntentDocumentDeleteRequested:
		doc := in.Document
		return func(ctx context.Context) error {
			return c.DeleteDocument(ctx, doc)
		}, nil

	case IntentViewLanguageChanged:
		return nil, c.SetViewLanguage(in.Language)

	case IntentViewportChanged:
		c.SetViewport(in.Page, in.Zoom)
		return nil, nil

	case IntentDocumentsRefreshRequested:
		return func(ctx context.Context) error {
			c.RefreshDocumentList(ctx)
			return nil
		}, nil
	}

	return nil, apperr.ErrUnknownIntent
}
