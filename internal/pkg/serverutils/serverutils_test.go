package serverutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "auth required", err: apperr.ErrAuthRequired, want: 401},
		{name: "wrapped auth", err: fmt.Errorf("%w: expired", apperr.ErrAuthRequired), want: 401},
		{name: "bad credentials", err: apperr.ErrInvalidCredentials, want: 401},
		{name: "upload metadata", err: &apperr.UploadMetadataError{}, want: 502},
		{name: "backend down", err: &apperr.BackendUnavailableError{Op: "list"}, want: 502},
		{name: "backend not found", err: &apperr.BackendUnavailableError{Op: "file", Status: 404}, want: 404},
		{name: "invalid identity", err: &apperr.InvalidDocumentIdentityError{ID: "undefined"}, want: 400},
		{name: "unknown intent", err: apperr.ErrUnknownIntent, want: 400},
		{name: "invalid file", err: apperr.ErrInvalidFile, want: 400},
		{name: "empty message", err: apperr.ErrEmptyMessage, want: 400},
		{name: "view language", err: apperr.ErrInvalidViewLanguage, want: 400},
		{name: "processing", err: apperr.ErrDocumentProcessing, want: 409},
		{name: "not found", err: apperr.ErrDocumentNotFound, want: 404},
		{name: "validation", err: &ValidationError{}, want: 400},
		{name: "fiber error", err: fiber.NewError(fiber.StatusMethodNotAllowed, "nope"), want: 405},
		{name: "anything else", err: errors.New("kaput"), want: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

type sampleRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Kind   string `json:"kind" validate:"oneof=general bug"`
	Rating *int   `json:"rating" validate:"omitempty,min=1,max=5"`
}

func TestValidateRequest(t *testing.T) {
	five, nine := 5, 9

	assert.NoError(t, ValidateRequest(sampleRequest{Email: "a@b.co", Kind: "bug", Rating: &five}))
	assert.NoError(t, ValidateRequest(sampleRequest{Email: "a@b.co", Kind: "general"}))

	err := ValidateRequest(sampleRequest{Email: "nope", Kind: "rant", Rating: &nine})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 3)
	assert.Equal(t, "email", verr.Fields[0].Field)
	assert.Equal(t, "email must be a valid email", verr.Fields[0].Message)
	assert.Equal(t, "kind must be one of: general, bug", verr.Fields[1].Message)
	assert.Equal(t, "rating must be at most 5", verr.Fields[2].Message)
}

type staticVerifier struct{}

func (staticVerifier) Verify(raw string) (*identity.Claims, error) {
	if raw != "good" {
		return nil, apperr.ErrAuthRequired
	}
	return &identity.Claims{UserID: "user-1", Email: "ana@example.com", SessionID: "sess-1"}, nil
}

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/me", JwtMiddleware(staticVerifier{}), func(ctx *fiber.Ctx) error {
		claims, token, ok := ClaimsFrom(ctx)
		if !ok {
			return apperr.ErrAuthRequired
		}
		return ctx.JSON(SuccessResponse("ok", fiber.Map{"user": claims.UserID, "session": claims.SessionID, "token": token}))
	})
	app.Get("/boom", func(ctx *fiber.Ctx) error {
		return &apperr.BackendUnavailableError{Op: "list", Status: 500, Message: "db down"}
	})
	return app
}

func decode(t *testing.T, body io.Reader) Response {
	t.Helper()
	var res Response
	require.NoError(t, json.NewDecoder(body).Decode(&res))
	return res
}

func TestJwtMiddleware(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	res := decode(t, resp.Body)
	assert.True(t, res.Success)
	assert.Equal(t, map[string]interface{}{"user": "user-1", "session": "sess-1", "token": "good"}, res.Data)

	for _, header := range []string{"", "Bearer bad", "Basic abc"} {
		req := httptest.NewRequest("GET", "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode, header)
		res := decode(t, resp.Body)
		assert.False(t, res.Success)
		assert.Equal(t, "auth_required", res.ErrorCode)
	}
}

func TestErrorHandlerEnvelope(t *testing.T) {
	resp, err := newTestApp().Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, 502, resp.StatusCode)

	res := decode(t, resp.Body)
	assert.False(t, res.Success)
	assert.Equal(t, 502, res.Code)
	assert.Equal(t, "backend_unavailable", res.ErrorCode)
	assert.Equal(t, "backend list failed: status 500: db down", res.Message)
}
