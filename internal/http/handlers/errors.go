// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These symbolic constants are mapped to HTTP responses via the fail() helper
// in this package and give clients a stable, machine-readable taxonomy that
// supplements the human-readable message.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless noted.
//   - Generic codes (bad_request, not_found, ...) mirror HTTP status semantics.
//   - Domain-specific codes cover relay outcomes a status alone cannot convey.
package handlers

import "github.com/tbourn/go-relay-backend/internal/http/middleware"

const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeNotFound   = "not_found"
	// ErrCodeRateLimited is emitted by the rate-limit middleware, which runs
	// before any handler; the wire value is owned there.
	ErrCodeRateLimited  = middleware.CodeRateLimited
	ErrCodeInternal     = "internal_error"
	ErrCodePayloadLarge = "payload_too_large"

	// Domain-specific:
	ErrCodeQueueFull        = "queue_full"
	ErrCodeSubmitFailed     = "submit_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeUploadFailed     = "upload_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
