// Relay HTTP handlers.
//
// This file exposes the submission endpoints:
//   - POST /api/auth      (identity resolution, role from display name)
//   - POST /api/message   (text-only submission, routed by sender role)
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to the RelayService, and translate results into the response bodies the
// polling clients expect. The canned human-readable strings are localized
// from the Accept-Language header.
package handlers

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-relay-backend/internal/domain"
	"github.com/tbourn/go-relay-backend/internal/services"
	"github.com/tbourn/go-relay-backend/internal/texts"
)

//
// Service contracts (context-aware)
//

// RelayService defines the relay operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RelayService interface {
	// Resolve maps a display name to an identity without verification.
	Resolve(username string) domain.Identity
	// Submit routes a submission to the pending queue or the response log.
	Submit(ctx context.Context, sub services.Submission) (*services.SubmitResult, error)
	// PendingMessages returns the full queue snapshot in insertion order.
	PendingMessages(ctx context.Context) ([]domain.PendingMessage, error)
	// MarkResponded evicts a queued message by id.
	MarkResponded(ctx context.Context, id int64) error
	// ResponsesFor returns every response visible to userID.
	ResponsesFor(ctx context.Context, userID string) ([]domain.AdminResponse, error)
	// AllResponses returns the full response log (admin audit view).
	AllResponses(ctx context.Context) ([]domain.AdminResponse, error)
	// ClearResponses acknowledges a client history reset (no-op server-side).
	ClearResponses(ctx context.Context, userID string) error
}

// UploadService defines attachment blob operations consumed by HTTP handlers.
type UploadService interface {
	// Save streams one payload to the blob store under a generated key.
	Save(originalName string, r io.Reader) (domain.Attachment, error)
	// Path resolves a storage key to a servable file path.
	Path(key string) (string, error)
	// Thumbnail renders a JPEG preview of an image attachment.
	Thumbnail(key string) ([]byte, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the relay. It depends on abstract
// service interfaces to keep transport concerns separate from routing logic.
type Handlers struct {
	relaySvc  RelayService
	uploadSvc UploadService
}

// New constructs a Handlers instance bound to the given services.
func New(relaySvc RelayService, uploadSvc UploadService) *Handlers {
	return &Handlers{relaySvc: relaySvc, uploadSvc: uploadSvc}
}

//
// DTOs
//

// AuthRequest is the JSON payload for identity resolution.
type AuthRequest struct {
	// Username is the display name doubling as the identity claim.
	Username string `json:"username" binding:"required,min=1"`
}

// AuthResponse echoes the resolved identity. Success is always true for a
// non-empty name; there is no reject path.
type AuthResponse struct {
	Success  bool   `json:"success"`
	IsAdmin  bool   `json:"isAdmin"`
	Username string `json:"username"`
}

// MessageRequest is the JSON payload for a text-only submission.
type MessageRequest struct {
	Message      string `json:"message"`
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	TargetUserID string `json:"targetUserId"`
}

// SubmitResponse is the acknowledgement body for both submission routes.
// FileCount is present only on the multipart endpoint.
type SubmitResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	IsAdmin   *bool  `json:"isAdmin,omitempty"`
	FileCount *int   `json:"fileCount,omitempty"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeText normalizes user text for consistent downstream behavior:
// CRLF/CR to LF, runs of 3+ LFs to exactly two, surrounding space trimmed.
func sanitizeText(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// submitErr maps service submission errors onto the response envelope.
func submitErr(c *gin.Context, err error) {
	switch err {
	case services.ErrUsernameRequired:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username is required")
	case services.ErrEmptyMessage:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message or files required")
	case services.ErrTooLong:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message too long")
	case services.ErrQueueFull:
		fail(c, http.StatusServiceUnavailable, ErrCodeQueueFull, "pending queue is full, try again later")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, err.Error())
	}
}

// boolPtr and intPtr feed the optional acknowledgement fields.
func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

//
// Handlers
//

// Auth resolves a display name to a role. Deterministic, side-effect-free,
// and always succeeds for a non-empty name; a name equal to the configured
// admin name yields the admin role. Explicitly not a security control.
func (h *Handlers) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username is required")
		return
	}

	id := h.relaySvc.Resolve(req.Username)
	ok(c, http.StatusOK, AuthResponse{
		Success:  true,
		IsAdmin:  id.IsAdmin,
		Username: id.Username,
	})
}

// PostMessage accepts a text-only submission and routes it by the sender's
// resolved role: regular users feed the pending queue, the admin publishes a
// response (directed via targetUserId, broadcast when omitted).
func (h *Handlers) PostMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.relaySvc.Submit(c.Request.Context(), services.Submission{
		UserID:       req.UserID,
		Username:     req.Username,
		Text:         sanitizeText(req.Message),
		TargetUserID: req.TargetUserID,
	})
	if err != nil {
		submitErr(c, err)
		return
	}

	if res.Admin {
		ok(c, http.StatusOK, SubmitResponse{
			Status:  "admin response sent",
			Message: "Admin response processed",
		})
		return
	}

	p := texts.Printer(c.GetHeader("Accept-Language"))
	ok(c, http.StatusOK, SubmitResponse{
		Status:  "received",
		Message: p.Sprintf(texts.Waiting),
		IsAdmin: boolPtr(false),
	})
}
