// Package apperr holds the error taxonomy shared by the gateway, the
// coordinator and the backend/identity clients.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired is returned when an operation needs a signed-in identity.
	ErrAuthRequired = errors.New("authentication required")

	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUnknownIntent       = errors.New("unknown intent")
	ErrInvalidFile         = errors.New("invalid file")
	ErrEmptyMessage        = errors.New("message is empty")
	ErrDocumentProcessing  = errors.New("document is still processing")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrInvalidViewLanguage = errors.New("view language must be native or english")
)

// UploadMetadataError means the upload succeeded at the transport level but
// the response carried no usable durable identity.
type UploadMetadataError struct {
	Raw map[string]interface{}
}

func (e *UploadMetadataError) Error() string {
	return fmt.Sprintf("upload completed but no valid document id received: %v", e.Raw)
}

// BackendUnavailableError wraps network failures and non-success statuses.
type BackendUnavailableError struct {
	Op      string // "upload", "metadata", "list", ...
	Status  int    // 0 when the request never got a response
	Message string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("backend %s failed: status %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("backend %s failed: status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("backend %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("backend %s failed", e.Op)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// InvalidDocumentIdentityError marks an empty or "undefined" document id.
type InvalidDocumentIdentityError struct {
	ID string
}

func (e *InvalidDocumentIdentityError) Error() string {
	return fmt.Sprintf("invalid document identity %q", e.ID)
}

// Code returns the short machine-readable code used in HTTP error bodies and
// websocket error frames.
func Code(err error) string {
	var (
		metaErr    *UploadMetadataError
		backendErr *BackendUnavailableError
		idErr      *InvalidDocumentIdentityError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthRequired):
		return "auth_required"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.As(err, &metaErr):
		return "upload_metadata"
	case errors.As(err, &backendErr):
		return "backend_unavailable"
	case errors.As(err, &idErr):
		return "invalid_document_identity"
	case errors.Is(err, ErrUnknownIntent):
		return "unknown_intent"
	case errors.Is(err, ErrInvalidFile):
		return "invalid_file"
	case errors.Is(err, ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, ErrDocumentProcessing):
		return "document_processing"
	case errors.Is(err, ErrDocumentNotFound):
		return "document_not_found"
	case errors.Is(err, ErrInvalidViewLanguage):
		return "invalid_view_language"
	}
	return "internal_error"
}
