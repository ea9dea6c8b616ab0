// Package client implements the terminal-side half of the relay: identity
// state, the deduplicating chat history mirror, the HTTP API wrapper, and the
// polling loop that keeps the mirror converged with the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

// API is a thin typed wrapper over the relay's HTTP endpoints. The zero value
// is not usable; construct with NewAPI.
type API struct {
	base string
	http *http.Client
}

// NewAPI builds an API client for the given base URL, e.g.
// "http://localhost:3002".
func NewAPI(baseURL string) *API {
	return &API{
		base: baseURL,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// AuthResult mirrors the server's auth response.
type AuthResult struct {
	Success  bool   `json:"success"`
	IsAdmin  bool   `json:"isAdmin"`
	Username string `json:"username"`
}

// SendResult mirrors the server's submission acknowledgement.
type SendResult struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	IsAdmin   *bool  `json:"isAdmin,omitempty"`
	FileCount *int   `json:"fileCount,omitempty"`
}

// apiError is the server's JSON error envelope.
type apiError struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

// Auth resolves a username into an identity.
func (a *API) Auth(ctx context.Context, username string) (AuthResult, error) {
	var out AuthResult
	err := a.postJSON(ctx, "/api/auth", map[string]string{"username": username}, &out)
	return out, err
}

// SendMessage submits a text-only message. Admin routing happens server-side
// from the username.
func (a *API) SendMessage(ctx context.Context, userID, username, text, targetUserID string) (SendResult, error) {
	var out SendResult
	err := a.postJSON(ctx, "/api/message", map[string]string{
		"message":      text,
		"userId":       userID,
		"username":     username,
		"targetUserId": targetUserID,
	}, &out)
	return out, err
}

// FileUpload names one attachment for a multipart submission.
type FileUpload struct {
	Name   string
	Reader io.Reader
}

// SendMessageWithFiles submits a message with attachments as multipart form
// data. isAdmin mirrors the browser client's explicit flag; the server also
// re-derives it from the username.
func (a *API) SendMessageWithFiles(ctx context.Context, userID, username, text, targetUserID string, isAdmin bool, files []FileUpload) (SendResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{
		"message":      text,
		"userId":       userID,
		"username":     username,
		"targetUserId": targetUserID,
		"isAdmin":      strconv.FormatBool(isAdmin),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return SendResult{}, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	for i, f := range files {
		part, err := w.CreateFormFile("file"+strconv.Itoa(i), filepath.Base(f.Name))
		if err != nil {
			return SendResult{}, fmt.Errorf("create part: %w", err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return SendResult{}, fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return SendResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/api/message-with-files", &body)
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out SendResult
	err = a.do(req, &out)
	return out, err
}

// PendingMessages fetches the full pending queue snapshot (admin side).
func (a *API) PendingMessages(ctx context.Context) ([]domain.PendingMessage, error) {
	var out []domain.PendingMessage
	err := a.getJSON(ctx, "/api/pending-messages", nil, &out)
	return out, err
}

// UserResponses fetches every response visible to userID, broadcasts
// included, in publication order.
func (a *API) UserResponses(ctx context.Context, userID string) ([]domain.AdminResponse, error) {
	var out struct {
		Responses []domain.AdminResponse `json:"responses"`
	}
	err := a.getJSON(ctx, "/api/user-response", url.Values{"userId": {userID}}, &out)
	return out.Responses, err
}

// AdminResponses fetches the full response log (admin side).
func (a *API) AdminResponses(ctx context.Context) ([]domain.AdminResponse, error) {
	var out struct {
		Responses []domain.AdminResponse `json:"responses"`
	}
	err := a.getJSON(ctx, "/api/admin-responses", nil, &out)
	return out.Responses, err
}

// MarkResponded removes one pending message from the queue after the admin
// has answered it.
func (a *API) MarkResponded(ctx context.Context, messageID int64) error {
	return a.postJSON(ctx, "/api/mark-responded", map[string]int64{"messageId": messageID}, nil)
}

// ClearResponses asks the server to clear responses for userID. The server
// acknowledges without deleting; clients own their history.
func (a *API) ClearResponses(ctx context.Context, userID string) error {
	return a.postJSON(ctx, "/api/clear-responses", map[string]string{"userId": userID}, nil)
}

func (a *API) postJSON(ctx context.Context, path string, in, out interface{}) error {
	buf, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *API) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := a.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *API) do(req *http.Request, out interface{}) error {
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var envelope apiError
		if json.Unmarshal(body, &envelope) == nil && envelope.Code != "" {
			return &envelope
		}
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
