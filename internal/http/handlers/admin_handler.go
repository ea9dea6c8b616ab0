// Admin and polling HTTP handlers.
//
// This file exposes the two poll reads and the queue mutation:
//   - GET  /api/pending-messages  (admin's 5s poll: full queue snapshot)
//   - POST /api/mark-responded    (evict a queued message after replying)
//   - GET  /api/user-response     (regular user's 3s poll: visible responses)
//   - GET  /api/admin-responses   (full response log, admin audit view)
//   - POST /api/clear-responses   (client history reset acknowledgement)
//
// Both poll endpoints return full snapshots on every call. The server keeps
// no per-client read cursor; the polling client is responsible for dedup
// (see the client package's history reconciler).
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-relay-backend/internal/domain"
	"github.com/tbourn/go-relay-backend/internal/services"
)

//
// DTOs
//

// MarkRespondedRequest names the queued message to evict. The id arrives as
// a JSON number or string depending on the client, hence json.Number.
type MarkRespondedRequest struct {
	MessageID json.Number `json:"messageId" binding:"required"`
}

// ClearResponsesRequest identifies the client acknowledging a reset.
type ClearResponsesRequest struct {
	UserID string `json:"userId"`
}

// UserResponsesResponse wraps the responses visible to one user.
type UserResponsesResponse struct {
	Responses []domain.AdminResponse `json:"responses"`
}

// StatusResponse is the minimal acknowledgement body.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

//
// Handlers
//

// PendingMessages returns the current queue in insertion order. Polled by
// the admin client; each response reflects every enqueue that happened
// before it, with no staleness beyond the polling interval.
func (h *Handlers) PendingMessages(c *gin.Context) {
	msgs, err := h.relaySvc.PendingMessages(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, msgs)
}

// MarkResponded evicts a queued message once the admin has replied. A
// second call with the same id, or any unknown id, yields 404, which the
// admin client treats as a hint to refresh its list, not an error to retry.
func (h *Handlers) MarkResponded(c *gin.Context) {
	var req MarkRespondedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "messageId required")
		return
	}
	id, err := req.MessageID.Int64()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "messageId must be an integer")
		return
	}

	if err := h.relaySvc.MarkResponded(c.Request.Context(), id); err != nil {
		switch err {
		case services.ErrMessageNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, StatusResponse{
		Status:  "marked as responded",
		Message: "Message marked as responded",
	})
}

// UserResponses returns every response visible to the polling user:
// broadcasts plus responses directed at the supplied userId. Pure read;
// repeated polls re-observe the same responses and the client dedups.
func (h *Handlers) UserResponses(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "userId is required")
		return
	}

	rs, err := h.relaySvc.ResponsesFor(c.Request.Context(), userID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, UserResponsesResponse{Responses: rs})
}

// AdminResponses returns the full response log in insertion order, directed
// and broadcast alike. The admin's audit view.
func (h *Handlers) AdminResponses(c *gin.Context) {
	rs, err := h.relaySvc.AllResponses(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, UserResponsesResponse{Responses: rs})
}

// ClearResponses acknowledges a client-side history reset. Idempotent no-op:
// delivery state lives on the client, so there is nothing server-side to
// discard.
func (h *Handlers) ClearResponses(c *gin.Context) {
	var req ClearResponsesRequest
	_ = c.ShouldBindJSON(&req) // body optional

	if err := h.relaySvc.ClearResponses(c.Request.Context(), req.UserID); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, StatusResponse{Status: "responses cleared"})
}
