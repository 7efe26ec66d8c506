// Package backend is the typed HTTP client for the document processing
// backend (upload, metadata, listing, deletion, chat, feedback and file
// streams).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"linguabridge-gateway/pkg/apperr"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "linguabridge-gateway/pkg/backend"

type Client struct {
	BaseURL string
	// Timeout bounds JSON calls. Uploads and streams are bounded by the
	// caller's context only.
	Timeout time.Duration
	HTTP    *http.Client

	tracer trace.Tracer
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
		HTTP:    &http.Client{},
		tracer:  otel.Tracer(tracerName),
	}
}

// Upload sends the file as multipart form data and normalizes the response.
func (c *Client) Upload(ctx context.Context, userID, filename string, file io.Reader) (UploadResult, error) {
	ctx, span := c.startSpan(ctx, "upload", attribute.String("upload.filename", filename))
	defer span.End()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, c.fail(span, &apperr.BackendUnavailableError{Op: "upload", Err: err})
	}
	if _, err := io.Copy(part, file); err != nil {
		return UploadResult{}, c.fail(span, &apperr.BackendUnavailableError{Op: "upload", Err: err})
	}
	if err := mw.WriteField("user_id", userID); err != nil {
		return UploadResult{}, c.fail(span, &apperr.BackendUnavailableError{Op: "upload", Err: err})
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, c.fail(span, &apperr.BackendUnavailableError{Op: "upload", Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", &buf)
	if err != nil {
		return UploadResult{}, c.fail(span, &apperr.BackendUnavailableError{Op: "upload", Err: err})
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return UploadResult{}, c.fail(span, &apperr.BackendUnavailableError{Op: "upload", Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadResult{}, c.fail(span, &apperr.BackendUnavailableError{Op: "upload", Status: resp.StatusCode, Err: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return UploadResult{}, c.fail(span, statusError("upload", resp.StatusCode, body))
	}

	res, err := ParseUploadResponse(body)
	if err != nil {
		return UploadResult{}, c.fail(span, &apperr.BackendUnavailableError{Op: "upload", Status: resp.StatusCode, Err: err})
	}
	span.SetAttributes(attribute.String("document.id", res.DocumentID))
	return res, nil
}

func (c *Client) Metadata(ctx context.Context, documentID string) (*Metadata, error) {
	var out Metadata
	path := "/metadata/" + url.PathEscape(documentID)
	if err := c.doJSON(ctx, "metadata", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDocuments(ctx context.Context, userID string) ([]Document, error) {
	var out documentsResponse
	q := url.Values{"user_id": {userID}}
	if err := c.doJSON(ctx, "list", http.MethodGet, "/user/documents", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Documents == nil {
		return []Document{}, nil
	}
	return out.Documents, nil
}

func (c *Client) DeleteDocument(ctx context.Context, userID, documentID string) error {
	q := url.Values{"user_id": {userID}}
	path := "/user/documents/" + url.PathEscape(documentID)
	return c.doJSON(ctx, "delete", http.MethodDelete, path, q, nil, nil)
}

// Chat asks a question about a document. A success status without a reply
// is treated as a failure carrying the backend's error text.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	var out chatResponse
	if err := c.doJSON(ctx, "chat", http.MethodPost, "/chat", nil, req, &out); err != nil {
		return "", err
	}
	if out.Reply == "" {
		return "", &apperr.BackendUnavailableError{Op: "chat", Status: http.StatusOK, Message: out.Error}
	}
	return out.Reply, nil
}

func (c *Client) ChatHistory(ctx context.Context, userID, documentID string) ([]ChatMessage, error) {
	var out chatHistoryResponse
	q := url.Values{"user_id": {userID}}
	path := "/user/chat/" + url.PathEscape(documentID)
	if err := c.doJSON(ctx, "chat_history", http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	if out.Messages == nil {
		return []ChatMessage{}, nil
	}
	return out.Messages, nil
}

func (c *Client) SubmitFeedback(ctx context.Context, req FeedbackRequest) error {
	var out feedbackResponse
	if err := c.doJSON(ctx, "feedback", http.MethodPost, "/feedback", nil, req, &out); err != nil {
		return err
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "Failed to submit feedback"
		}
		return &apperr.BackendUnavailableError{Op: "feedback", Status: http.StatusOK, Message: msg}
	}
	return nil
}

// OpenFile streams the original file. lang selects the translated PDF when
// set to "english"; an empty lang lets the backend default to native.
func (c *Client) OpenFile(ctx context.Context, documentID, lang string) (*Stream, error) {
	var q url.Values
	if lang != "" {
		q = url.Values{"lang": {lang}}
	}
	return c.openStream(ctx, "file", "/file/"+url.PathEscape(documentID), q)
}

func (c *Client) OpenAudio(ctx context.Context, documentID string) (*Stream, error) {
	return c.openStream(ctx, "audio", "/audio/"+url.PathEscape(documentID), nil)
}

func (c *Client) OpenTranslationPDF(ctx context.Context, documentID string) (*Stream, error) {
	return c.openStream(ctx, "download", "/download/pdf/"+url.PathEscape(documentID), nil)
}

func (c *Client) openStream(ctx context.Context, op, path string, query url.Values) (*Stream, error) {
	ctx, span := c.startSpan(ctx, op, attribute.String("http.path", path))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return nil, c.fail(span, &apperr.BackendUnavailableError{Op: op, Err: err})
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, c.fail(span, &apperr.BackendUnavailableError{Op: op, Err: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, c.fail(span, statusError(op, resp.StatusCode, body))
	}

	stream := &Stream{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			stream.Filename = params["filename"]
		}
	}
	return stream, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, in, out interface{}) error {
	ctx, span := c.startSpan(ctx, op, attribute.String("http.method", method), attribute.String("http.path", path))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return c.fail(span, &apperr.BackendUnavailableError{Op: op, Err: fmt.Errorf("marshal request: %w", err)})
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return c.fail(span, &apperr.BackendUnavailableError{Op: op, Err: err})
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return c.fail(span, &apperr.BackendUnavailableError{Op: op, Err: err})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(span, &apperr.BackendUnavailableError{Op: op, Status: resp.StatusCode, Err: err})
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(span, statusError(op, resp.StatusCode, respBody))
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return c.fail(span, &apperr.BackendUnavailableError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)})
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := c.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return tracer.Start(ctx, "backend."+op, trace.WithAttributes(attrs...))
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func statusError(op string, status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	return &apperr.BackendUnavailableError{Op: op, Status: status, Message: eb.Error}
}
