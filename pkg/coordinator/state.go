package coordinator

import (
	"sort"

	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"
)

type ViewLanguage string

const (
	LanguageNative  ViewLanguage = "native"
	LanguageEnglish ViewLanguage = "english"
)

func (l ViewLanguage) Valid() bool {
	return l == LanguageNative || l == LanguageEnglish
}

// ParseViewLanguage accepts the two wire values and nothing else.
func ParseViewLanguage(s string) (ViewLanguage, error) {
	l := ViewLanguage(s)
	if !l.Valid() {
		return "", apperr.ErrInvalidViewLanguage
	}
	return l, nil
}

const (
	MinZoom     = 0.5
	MaxZoom     = 3.0
	DefaultZoom = 1.0
)

type Viewport struct {
	Page int     `json:"page"`
	Zoom float64 `json:"zoom"`
}

func DefaultViewport() Viewport {
	return Viewport{Page: 1, Zoom: DefaultZoom}
}

// clamp keeps page >= 1 and zoom within [MinZoom, MaxZoom].
func (v Viewport) clamp() Viewport {
	if v.Page < 1 {
		v.Page = 1
	}
	switch {
	case v.Zoom == 0:
		v.Zoom = DefaultZoom
	case v.Zoom < MinZoom:
		v.Zoom = MinZoom
	case v.Zoom > MaxZoom:
		v.Zoom = MaxZoom
	}
	return v
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// FileInfo describes a file the user picked for upload.
type FileInfo struct {
	Name string
	Size int64
}

// viewState is the Session View State. Only the coordinator touches it, and
// only with mu held.
type viewState struct {
	activeDocumentID    string
	activeFilename      string
	activeFileExtension string
	nativeText          string
	translatedText      string
	pendingUploads      map[string]struct{}
	userDocuments       []backend.Document
	isSwitching         bool
	viewport            Viewport
	viewLanguage        ViewLanguage
}

func newViewState() viewState {
	return viewState{
		pendingUploads: map[string]struct{}{},
		userDocuments:  []backend.Document{},
		viewport:       DefaultViewport(),
		viewLanguage:   LanguageNative,
	}
}

func (s *viewState) clearText() {
	s.nativeText = ""
	s.translatedText = ""
}

func (s *viewState) clearPlaceholders() {
	for id := range s.pendingUploads {
		delete(s.pendingUploads, id)
	}
}

// Snapshot is the render-ready copy of the view state pushed to widgets.
type Snapshot struct {
	Version             uint64             `json:"version"`
	SessionID           string             `json:"session_id"`
	ActiveDocumentID    string             `json:"active_document_id"`
	ActiveFilename      string             `json:"active_filename"`
	ActiveFileExtension string             `json:"active_file_extension"`
	NativeText          string             `json:"native_text"`
	TranslatedText      string             `json:"translated_text"`
	PendingUploads      []string           `json:"pending_uploads"`
	UserDocuments       []backend.Document `json:"user_documents"`
	IsSwitching         bool               `json:"is_switching"`
	Processing          bool               `json:"processing"`
	Viewport            Viewport           `json:"viewport"`
	ViewLanguage        ViewLanguage       `json:"view_language"`
}

func (s *viewState) snapshot(sessionID string, version uint64) Snapshot {
	pending := make([]string, 0, len(s.pendingUploads))
	for id := range s.pendingUploads {
		pending = append(pending, id)
	}
	sort.Strings(pending)

	docs := make([]backend.Document, len(s.userDocuments))
	copy(docs, s.userDocuments)

	_, processing := s.pendingUploads[s.activeDocumentID]

	return Snapshot{
		Version:             version,
		SessionID:           sessionID,
		ActiveDocumentID:    s.activeDocumentID,
		ActiveFilename:      s.activeFilename,
		ActiveFileExtension: s.activeFileExtension,
		NativeText:          s.nativeText,
		TranslatedText:      s.translatedText,
		PendingUploads:      pending,
		UserDocuments:       docs,
		IsSwitching:         s.isSwitching,
		Processing:          processing && IsPlaceholder(s.activeDocumentID),
		Viewport:            s.viewport,
		ViewLanguage:        s.viewLanguage,
	}
}

// FindDocument looks id up in the snapshot's document list.
func (s Snapshot) FindDocument(id string) (backend.Document, bool) {
	for _, d := range s.UserDocuments {
		if d.DocumentID == id {
			return d, true
		}
	}
	return backend.Document{}, false
}
