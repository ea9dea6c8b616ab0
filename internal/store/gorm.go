// SQLite-backed store backend over internal/repo. Substituting it for the
// in-memory default gives durability across restarts without touching any
// caller: ids remain strictly increasing because the allocator is seeded
// from the largest id already on disk.
package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-relay-backend/internal/domain"
	"github.com/tbourn/go-relay-backend/internal/repo"
)

// GormPending is a PendingStore persisted in SQLite.
type GormPending struct {
	db       *gorm.DB
	capacity int
	ids      *idAlloc
}

// NewGormPending builds a queue over an opened, migrated database and seeds
// the id allocator from the existing rows (soft-deleted ones included).
func NewGormPending(db *gorm.DB, capacity int) (*GormPending, error) {
	seed, err := repo.MaxPendingID(context.Background(), db)
	if err != nil {
		return nil, err
	}
	return &GormPending{db: db, capacity: capacity, ids: newIDAlloc(seed)}, nil
}

// Enqueue appends a message, honoring the capacity knob.
func (s *GormPending) Enqueue(ctx context.Context, userID, username, text string, atts []domain.Attachment) (*domain.PendingMessage, error) {
	if s.capacity > 0 {
		n, err := repo.CountPending(ctx, s.db)
		if err != nil {
			return nil, err
		}
		if n >= int64(s.capacity) {
			return nil, ErrQueueFull
		}
	}

	m := &domain.PendingMessage{
		ID:          s.ids.next(),
		UserID:      userID,
		Username:    username,
		Text:        text,
		Attachments: atts,
		CreatedAt:   time.Now().UTC(),
		Status:      domain.StatusPending,
	}
	if err := repo.InsertPending(ctx, s.db, m); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns the queue in insertion order.
func (s *GormPending) List(ctx context.Context) ([]domain.PendingMessage, error) {
	return repo.ListPending(ctx, s.db)
}

// Remove evicts by id, mapping the repo miss to ErrNotFound.
func (s *GormPending) Remove(ctx context.Context, id int64) error {
	err := repo.DeletePending(ctx, s.db, id)
	if err == repo.ErrNotFound {
		return ErrNotFound
	}
	return err
}

// Len reports the current queue depth.
func (s *GormPending) Len(ctx context.Context) (int, error) {
	n, err := repo.CountPending(ctx, s.db)
	return int(n), err
}

// GormResponses is a ResponseStore persisted in SQLite.
type GormResponses struct {
	db  *gorm.DB
	ids *idAlloc
}

// NewGormResponses builds a response log over an opened, migrated database.
func NewGormResponses(db *gorm.DB) (*GormResponses, error) {
	seed, err := repo.MaxResponseID(context.Background(), db)
	if err != nil {
		return nil, err
	}
	return &GormResponses{db: db, ids: newIDAlloc(seed)}, nil
}

// Publish appends a response. An empty targetUserID broadcasts.
func (s *GormResponses) Publish(ctx context.Context, adminUsername, text string, atts []domain.Attachment, targetUserID string) (*domain.AdminResponse, error) {
	r := &domain.AdminResponse{
		ID:            s.ids.next(),
		AdminUsername: adminUsername,
		Text:          text,
		Attachments:   atts,
		TargetUserID:  normalizeTarget(targetUserID),
		CreatedAt:     time.Now().UTC(),
	}
	if err := repo.InsertResponse(ctx, s.db, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Query returns every response visible to userID in insertion order.
func (s *GormResponses) Query(ctx context.Context, userID string) ([]domain.AdminResponse, error) {
	return repo.ListResponsesFor(ctx, s.db, userID)
}

// All returns the full log in insertion order.
func (s *GormResponses) All(ctx context.Context) ([]domain.AdminResponse, error) {
	return repo.ListResponses(ctx, s.db)
}
