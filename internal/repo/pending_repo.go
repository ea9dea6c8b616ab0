// Package repo implements the SQLite persistence layer for the relay stores,
// backed by GORM. This file provides repository functions for the
// PendingMessage model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a message is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the store layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// InsertPending persists a fully-populated pending message row. The caller
// (the store layer) assigns the id so that the monotonic-id invariant is the
// same for every backend.
func InsertPending(ctx context.Context, db *gorm.DB, m *domain.PendingMessage) error {
	return db.WithContext(ctx).Create(m).Error
}

// ListPending returns all queued messages in insertion order (id ascending).
// It returns an empty slice when the queue is empty.
func ListPending(ctx context.Context, db *gorm.DB) ([]domain.PendingMessage, error) {
	out := []domain.PendingMessage{}
	err := db.WithContext(ctx).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CountPending returns the number of queued messages.
func CountPending(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.PendingMessage{}).
		Count(&total).Error
	return total, err
}

// DeletePending evicts the message with the given id. If no row matches
// (already resolved, or the id never existed) it returns ErrNotFound.
func DeletePending(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.PendingMessage{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MaxPendingID returns the largest id ever assigned in the table, or 0 when
// empty. Soft-deleted rows count: the id allocator must never reissue an id
// that a client may still hold.
func MaxPendingID(ctx context.Context, db *gorm.DB) (int64, error) {
	var max int64
	err := db.WithContext(ctx).
		Model(&domain.PendingMessage{}).
		Unscoped().
		Select("COALESCE(MAX(id), 0)").
		Scan(&max).Error
	return max, err
}
