package dto

import (
	"encoding/json"
	"errors"

	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/coordinator"
)

// IntentRequest is the wire form of a widget intent, on both
// POST /session/intents and the websocket.
type IntentRequest struct {
	Kind     string                 `json:"kind" validate:"required"`
	File     *FileRef               `json:"file,omitempty"`
	Upload   map[string]interface{} `json:"upload,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Document *backend.Document      `json:"document,omitempty"`
	Language string                 `json:"language,omitempty"`
	Page     int                    `json:"page,omitempty"`
	Zoom     float64                `json:"zoom,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

type FileRef struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ToIntent maps the request onto a coordinator intent. Upload metadata goes
// through the backend normalizer so key variance never reaches the
// coordinator.
func (r IntentRequest) ToIntent() (coordinator.Intent, error) {
	in := coordinator.Intent{Kind: coordinator.IntentKind(r.Kind)}

	switch in.Kind {
	case coordinator.IntentUploadStarted:
		if r.File == nil {
			return in, apperr.ErrInvalidFile
		}
		in.File = coordinator.FileInfo{Name: r.File.Name, Size: r.File.Size}
	case coordinator.IntentUploadCompleted:
		raw := r.Upload
		if raw == nil {
			raw = map[string]interface{}{}
		}
		in.Upload = backend.NormalizeUploadResponse(raw)
	case coordinator.IntentUploadFailed:
		if r.Error != "" {
			in.Cause = errors.New(r.Error)
		}
	case coordinator.IntentDocumentSelected, coordinator.IntentDocumentDeleteRequested:
		if r.Document == nil || !coordinator.ValidIdentity(r.Document.DocumentID) {
			id := ""
			if r.Document != nil {
				id = r.Document.DocumentID
			}
			return in, &apperr.InvalidDocumentIdentityError{ID: id}
		}
		in.Document = *r.Document
	case coordinator.IntentViewLanguageChanged:
		lang, err := coordinator.ParseViewLanguage(r.Language)
		if err != nil {
			return in, err
		}
		in.Language = lang
	case coordinator.IntentViewportChanged:
		in.Page = r.Page
		in.Zoom = r.Zoom
	case coordinator.IntentDocumentsRefreshRequested:
	default:
		return in, apperr.ErrUnknownIntent
	}
	return in, nil
}

// Frame is one message pushed to a widget.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	FrameState = "state"
	FrameChat  = "chat"
	FrameError = "error"
)

type ErrorFrameData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// KindChatSend carries a chat message over the intent socket. It is handled
// by the chat panel, not the coordinator.
const KindChatSend = "chat_send"

func NewFrame(frameType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: frameType, Data: raw})
}

func ErrorFrame(err error) []byte {
	frame, _ := NewFrame(FrameError, ErrorFrameData{Code: apperr.Code(err), Message: err.Error()})
	return frame
}
