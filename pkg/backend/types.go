package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
)

// Document is one entry of the user's persisted document list.
type Document struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	CreatedAt  string `json:"created_at"`
}

// Metadata is the extracted/translated content of a processed document.
type Metadata struct {
	Filename       string `json:"filename,omitempty"`
	FileExt        string `json:"fileExt"`
	NativeText     string `json:"nativeText"`
	TranslatedText string `json:"translatedText"`
}

// UploadResult is the canonical shape of an upload response. Build it with
// NormalizeUploadResponse rather than decoding into it directly.
type UploadResult struct {
	DocumentID string
	Filename   string
	Name       string
	FileExt    string
	NumPages   int
	Raw        map[string]interface{}
}

// DisplayFilename applies the filename -> name -> "Document" fallback chain.
func (r UploadResult) DisplayFilename() string {
	if r.Filename != "" {
		return r.Filename
	}
	if r.Name != "" {
		return r.Name
	}
	return "Document"
}

// Extension returns the reported extension, defaulting to pdf.
func (r UploadResult) Extension() string {
	if r.FileExt != "" {
		return r.FileExt
	}
	return "pdf"
}

// ChatMessage is one persisted chat turn.
type ChatMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON tolerates numeric ids and fills missing ones.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      interface{} `json:"id"`
		Role    string      `json:"role"`
		Content string      `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.ID = scalarString(raw.ID)
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Role = raw.Role
	m.Content = raw.Content
	return nil
}

type ChatRequest struct {
	DocumentID string `json:"documentId"`
	UserID     string `json:"userId"`
	Message    string `json:"message"`
}

type FeedbackRequest struct {
	UserID       string `json:"user_id"`
	FeedbackText string `json:"feedback_text"`
	FeedbackType string `json:"feedback_type"`
	Rating       *int   `json:"rating"`
}

// Stream is a proxied binary response. Callers must close Body.
type Stream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Filename      string
}

type documentsResponse struct {
	Documents []Document `json:"documents"`
}

type chatHistoryResponse struct {
	Messages []ChatMessage `json:"messages"`
}

type chatResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error"`
}

type feedbackResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return ""
	default:
		return fmt.Sprint(t)
	}
}
