// Package services defines the business logic of the relay: identity
// resolution, message routing, queue inspection, and attachment handling.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler layer.
package services

import "errors"

var (
	// ErrUsernameRequired is returned when a submission carries no display
	// name. The only required field on the submit path.
	ErrUsernameRequired = errors.New("username is required")

	// ErrEmptyMessage is returned when a submission has neither text nor
	// attachments. Text alone may be empty if files are present.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when message text exceeds the configured
	// maximum length.
	ErrTooLong = errors.New("message too long")

	// ErrMessageNotFound indicates that a mark-responded call named an id
	// that is not in the queue (already resolved, or never existed).
	ErrMessageNotFound = errors.New("message not found")

	// ErrQueueFull indicates that a bounded pending queue rejected the
	// submission. Only possible when a capacity is configured.
	ErrQueueFull = errors.New("pending queue full")

	// ErrNotImage is returned when a thumbnail is requested for an
	// attachment that does not decode as an image.
	ErrNotImage = errors.New("attachment is not an image")

	// ErrUnknownAttachment is returned when a storage key does not resolve
	// to a stored blob.
	ErrUnknownAttachment = errors.New("unknown attachment")
)
