package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/pkg/serverutils"
	"linguabridge-gateway/internal/service"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/chat"
	"linguabridge-gateway/pkg/coordinator"
	"linguabridge-gateway/pkg/identity"
	"linguabridge-gateway/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVerifier struct{}

func (staticVerifier) Verify(raw string) (*identity.Claims, error) {
	if raw != "good-token" {
		return nil, apperr.ErrAuthRequired
	}
	return &identity.Claims{UserID: "user-1", Email: "u@example.com", SessionID: "sess-1"}, nil
}

type stubSessions struct {
	sess     *store.Session
	resolved int
}

func newStubSessions() *stubSessions {
	sess := &store.Session{ID: "sess-1", UserID: "user-1", Email: "u@example.com"}
	sess.Chat = chat.NewPanel(sess.ID, sess.UserID, nil, nil, nil)
	sess.Coordinator = coordinator.New(coordinator.Options{SessionID: sess.ID, User: sess.User(), Observer: sess.Chat})
	return &stubSessions{sess: sess}
}

func (s *stubSessions) Establish(context.Context, *identity.Claims, string) *store.Session { return s.sess }

func (s *stubSessions) Resolve(context.Context, *identity.Claims, string) *store.Session {
	s.resolved++
	return s.sess
}

func (s *stubSessions) Get(string) (*store.Session, bool) { return s.sess, true }
func (s *stubSessions) End(string) bool                    { return true }
func (s *stubSessions) ForUser(string) []*store.Session    { return []*store.Session{s.sess} }

type stubUploads struct {
	filename string
	size     int
}

func (u *stubUploads) Begin(_ context.Context, sess *store.Session, filename string, data []byte) (string, error) {
	u.filename, u.size = filename, len(data)
	return sess.Coordinator.StartUpload(coordinator.FileInfo{Name: filename, Size: int64(len(data))}), nil
}

func (u *stubUploads) Run(_ context.Context, _ *store.Session, filename string, data []byte) (string, error) {
	u.filename, u.size = filename, len(data)
	return "doc_77", nil
}

func (u *stubUploads) Wait() {}

type stubDocuments struct{}

func (stubDocuments) List(context.Context, *store.Session) ([]backend.Document, error) {
	return []backend.Document{{DocumentID: "doc_1", Title: "one.pdf"}}, nil
}

func (stubDocuments) Select(_ context.Context, _ *store.Session, id string) (coordinator.Snapshot, error) {
	if id == "doc_1" {
		return coordinator.Snapshot{ActiveDocumentID: id}, nil
	}
	return coordinator.Snapshot{}, apperr.ErrDocumentNotFound
}

func (stubDocuments) Delete(_ context.Context, _ *store.Session, id string) (coordinator.Snapshot, error) {
	return coordinator.Snapshot{}, &apperr.BackendUnavailableError{Op: "delete", Status: 500, Message: "db down"}
}

type stubFiles struct{}

func (stubFiles) File(_ context.Context, id, _ string) (*backend.Stream, error) {
	if coordinator.IsPlaceholder(id) {
		return nil, apperr.ErrDocumentProcessing
	}
	return &backend.Stream{
		Body:          io.NopCloser(strings.NewReader("%PDF-1.7")),
		ContentType:   "application/pdf",
		ContentLength: 8,
		Filename:      "one.pdf",
	}, nil
}

func (stubFiles) Audio(context.Context, string) (*backend.Stream, error) {
	return nil, &apperr.BackendUnavailableError{Op: "audio", Status: 404}
}

func (stubFiles) TranslationPDF(context.Context, string) (*backend.Stream, error) {
	return nil, &apperr.InvalidDocumentIdentityError{ID: ""}
}

func newTestApp(register func(api fiber.Router, auth fiber.Handler)) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	register(app.Group("/api"), serverutils.JwtMiddleware(staticVerifier{}))
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, serverutils.Response) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body serverutils.Response
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func authed(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer good-token")
	return req
}

func multipartUpload(t *testing.T, path, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := authed(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newDocumentApp(sessions *stubSessions, uploads *stubUploads) *fiber.App {
	ctrl := NewDocumentController(sessions, stubDocuments{}, uploads, stubFiles{})
	return newTestApp(ctrl.RegisterRoutes)
}

func TestDocumentRoutesRequireAuth(t *testing.T) {
	app := newDocumentApp(newStubSessions(), &stubUploads{})

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "auth_required", body.ErrorCode)
}

func TestDocumentUpload(t *testing.T) {
	sessions := newStubSessions()
	uploads := &stubUploads{}
	app := newDocumentApp(sessions, uploads)

	status, body := do(t, app, multipartUpload(t, "/api/documents/upload", "scan.png", "pngbytes"))
	require.Equal(t, fiber.StatusAccepted, status)
	assert.Equal(t, "scan.png", uploads.filename)
	assert.Equal(t, 8, uploads.size)

	data := body.Data.(map[string]interface{})
	assert.True(t, coordinator.IsPlaceholder(data["placeholder_id"].(string)))
	assert.Equal(t, data["placeholder_id"], sessions.sess.Coordinator.Snapshot().ActiveDocumentID)
}

func TestDocumentUploadWait(t *testing.T) {
	app := newDocumentApp(newStubSessions(), &stubUploads{})

	status, body := do(t, app, multipartUpload(t, "/api/documents/upload?wait=true", "a.pdf", "%PDF"))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "doc_77", body.Data.(map[string]interface{})["document_id"])
}

func TestDocumentUploadWithoutFile(t *testing.T) {
	app := newDocumentApp(newStubSessions(), &stubUploads{})

	status, body := do(t, app, authed(http.MethodPost, "/api/documents/upload", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_file", body.ErrorCode)
}

func TestDocumentErrorMapping(t *testing.T) {
	app := newDocumentApp(newStubSessions(), &stubUploads{})

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{name: "select unknown", req: authed(http.MethodPost, "/api/documents/doc_9/select", nil), status: 404, code: "document_not_found"},
		{name: "delete backend failure", req: authed(http.MethodDelete, "/api/documents/doc_1", nil), status: 502, code: "backend_unavailable"},
		{name: "file still processing", req: authed(http.MethodGet, "/api/documents/temp-1-abc/file", nil), status: 409, code: "document_processing"},
		{name: "audio missing upstream", req: authed(http.MethodGet, "/api/documents/doc_1/audio", nil), status: 404, code: "backend_unavailable"},
		{name: "bad language", req: authed(http.MethodGet, "/api/documents/doc_1/file?lang=french", nil), status: 400, code: "validation_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, tt.req)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.ErrorCode)
		})
	}
}

func TestDocumentSelectAndList(t *testing.T) {
	app := newDocumentApp(newStubSessions(), &stubUploads{})

	status, body := do(t, app, authed(http.MethodPost, "/api/documents/doc_1/select", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "doc_1", body.Data.(map[string]interface{})["active_document_id"])

	status, body = do(t, app, authed(http.MethodGet, "/api/documents", nil))
	require.Equal(t, fiber.StatusOK, status)
	docs := body.Data.(map[string]interface{})["documents"].([]interface{})
	assert.Len(t, docs, 1)
}

func TestDocumentFileStream(t *testing.T) {
	app := newDocumentApp(newStubSessions(), &stubUploads{})

	resp, err := app.Test(authed(http.MethodGet, "/api/documents/doc_1/file?lang=english", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "one.pdf")
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(raw))
}

func TestSessionIntentRoute(t *testing.T) {
	sessions := newStubSessions()
	ctrl := NewSessionController(sessions, service.NewIntentService(nil))
	app := newTestApp(ctrl.RegisterRoutes)

	body := `{"kind":"view_language_changed","language":"english"}`
	req := authed(http.MethodPost, "/api/session/intents", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	status, res := do(t, app, req)
	require.Equal(t, fiber.StatusOK, status)
	state := res.Data.(map[string]interface{})["state"].(map[string]interface{})
	assert.Equal(t, "english", state["view_language"])

	req = authed(http.MethodPost, "/api/session/intents", strings.NewReader(`{"kind":"fly"}`))
	req.Header.Set("Content-Type", "application/json")
	status, res = do(t, app, req)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "unknown_intent", res.ErrorCode)

	status, res = do(t, app, authed(http.MethodGet, "/api/session/state", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.NotNil(t, res.Data.(map[string]interface{})["chat"])
}

type stubAuth struct{}

func (stubAuth) SignIn(_ context.Context, req *dto.SignInRequest) (*dto.AuthResponse, error) {
	if req.Password != "right" {
		return nil, apperr.ErrInvalidCredentials
	}
	return &dto.AuthResponse{AccessToken: "good-token", SessionID: "sess-1"}, nil
}

func (stubAuth) SignUp(_ context.Context, req *dto.SignUpRequest) (*dto.AuthResponse, error) {
	return &dto.AuthResponse{User: identity.User{Email: req.Email}, ConfirmationRequired: true}, nil
}

func (stubAuth) CurrentUser(context.Context, string) (*identity.User, error) {
	return &identity.User{ID: "user-1"}, nil
}

func (stubAuth) SignOut(context.Context, *identity.Claims, string) error { return nil }

func TestAuthRoutes(t *testing.T) {
	app := newTestApp(NewAuthController(stubAuth{}).RegisterRoutes)

	post := func(path, body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	status, res := do(t, app, post("/api/auth/signin", `{"email":"not-an-email","password":"x"}`))
	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, "email", res.Errors[0].Field)

	status, res = do(t, app, post("/api/auth/signin", `{"email":"a@b.co","password":"wrong"}`))
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "invalid_credentials", res.ErrorCode)

	status, res = do(t, app, post("/api/auth/signin", `{"email":"a@b.co","password":"right"}`))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "sess-1", res.Data.(map[string]interface{})["session_id"])

	status, res = do(t, app, post("/api/auth/signup", `{"email":"a@b.co","password":"secret1"}`))
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, res.Data.(map[string]interface{})["confirmation_required"])

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = do(t, app, authed(http.MethodPost, "/api/auth/signout", nil))
	assert.Equal(t, fiber.StatusOK, status)
}
