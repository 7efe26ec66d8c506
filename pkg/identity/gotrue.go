package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"linguabridge-gateway/pkg/apperr"
)

// GoTrueProvider implements Provider against a GoTrue-compatible auth API
// (the one Supabase exposes under /auth/v1).
type GoTrueProvider struct {
	BaseURL string
	AnonKey string
	HTTP    *http.Client
}

var _ Provider = (*GoTrueProvider)(nil)

func NewGoTrueProvider(baseURL, anonKey string, timeout time.Duration) *GoTrueProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoTrueProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		AnonKey: anonKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signUpResponse covers both shapes: a full session when the account is
// auto-confirmed, or the bare user when confirmation is pending.
type signUpResponse struct {
	Session
	ID    string `json:"id"`
	Email string `json:"email"`
}

type providerError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e providerError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (p *GoTrueProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	err := p.do(ctx, "signin", http.MethodPost, "/auth/v1/token?grant_type=password", "", credentials{email, password}, &out)
	if err != nil {
		var be *apperr.BackendUnavailableError
		if asBackend(err, &be) && (be.Status == http.StatusBadRequest || be.Status == http.StatusUnauthorized) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	return &out, nil
}

func (p *GoTrueProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var out signUpResponse
	if err := p.do(ctx, "signup", http.MethodPost, "/auth/v1/signup", "", credentials{email, password}, &out); err != nil {
		return nil, err
	}
	sess := out.Session
	if sess.User.ID == "" {
		sess.User = User{ID: out.ID, Email: out.Email}
	}
	return &sess, nil
}

func (p *GoTrueProvider) GetSession(ctx context.Context, accessToken string) (*User, error) {
	var out User
	if err := p.do(ctx, "get_user", http.MethodGet, "/auth/v1/user", accessToken, nil, &out); err != nil {
		var be *apperr.BackendUnavailableError
		if asBackend(err, &be) && (be.Status == http.StatusUnauthorized || be.Status == http.StatusForbidden) {
			return nil, apperr.ErrAuthRequired
		}
		return nil, err
	}
	return &out, nil
}

func (p *GoTrueProvider) SignOut(ctx context.Context, accessToken string) error {
	err := p.do(ctx, "signout", http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
	var be *apperr.BackendUnavailableError
	if asBackend(err, &be) && be.Status == http.StatusUnauthorized {
		// Token already revoked or expired: the session is gone either way.
		return nil
	}
	return err
}

func (p *GoTrueProvider) do(ctx context.Context, op, method, path, bearer string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, body)
	if err != nil {
		return &apperr.BackendUnavailableError{Op: op, Err: err}
	}
	req.Header.Set("apikey", p.AnonKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return &apperr.BackendUnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apperr.BackendUnavailableError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var pe providerError
		_ = json.Unmarshal(data, &pe)
		return &apperr.BackendUnavailableError{Op: op, Status: resp.StatusCode, Message: pe.text()}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &apperr.BackendUnavailableError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func asBackend(err error, target **apperr.BackendUnavailableError) bool {
	return err != nil && errors.As(err, target)
}
