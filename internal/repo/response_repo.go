// Package repo implements the SQLite persistence layer for the relay stores,
// backed by GORM. This file provides repository functions for the
// AdminResponse model. Responses are append-only; there is no update or
// delete path.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

// InsertResponse persists a fully-populated response row. Ids are assigned
// by the store layer, see InsertPending.
func InsertResponse(ctx context.Context, db *gorm.DB, r *domain.AdminResponse) error {
	return db.WithContext(ctx).Create(r).Error
}

// ListResponsesFor returns every response visible to userID (broadcasts
// plus responses directed exactly at that id) in insertion order. A pure
// read: nothing is marked delivered, the client dedups on its side.
func ListResponsesFor(ctx context.Context, db *gorm.DB, userID string) ([]domain.AdminResponse, error) {
	out := []domain.AdminResponse{}
	err := db.WithContext(ctx).
		Where("target_user_id IN ?", []string{domain.TargetAll, userID}).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// ListResponses returns the full response log in insertion order. Used by
// the admin audit view.
func ListResponses(ctx context.Context, db *gorm.DB) ([]domain.AdminResponse, error) {
	out := []domain.AdminResponse{}
	err := db.WithContext(ctx).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// MaxResponseID returns the largest response id, or 0 when the log is empty.
func MaxResponseID(ctx context.Context, db *gorm.DB) (int64, error) {
	var max int64
	err := db.WithContext(ctx).
		Model(&domain.AdminResponse{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&max).Error
	return max, err
}
