// In-memory store backend. This is the faithful rendition of the relay's
// original semantics: two shared slices guarded by one mutex each, reset on
// process restart.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

// MemoryPending is a mutex-guarded, slice-backed PendingStore. Capacity 0
// means unbounded; a positive capacity makes Enqueue fail with ErrQueueFull
// once the queue holds that many unresolved messages.
type MemoryPending struct {
	mu       sync.Mutex
	items    []domain.PendingMessage
	capacity int
	ids      *idAlloc
}

// NewMemoryPending constructs an empty queue with the given capacity
// (0 = unbounded).
func NewMemoryPending(capacity int) *MemoryPending {
	return &MemoryPending{capacity: capacity, ids: newIDAlloc(0)}
}

// Enqueue appends to the tail. It never rejects except when a configured
// capacity is reached.
func (s *MemoryPending) Enqueue(_ context.Context, userID, username, text string, atts []domain.Attachment) (*domain.PendingMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capacity > 0 && len(s.items) >= s.capacity {
		return nil, ErrQueueFull
	}

	m := domain.PendingMessage{
		ID:          s.ids.next(),
		UserID:      userID,
		Username:    username,
		Text:        text,
		Attachments: atts,
		CreatedAt:   time.Now().UTC(),
		Status:      domain.StatusPending,
	}
	s.items = append(s.items, m)

	out := m
	return &out, nil
}

// List returns a snapshot of the queue in insertion order. The returned
// slice is a copy; callers cannot corrupt the queue through it.
func (s *MemoryPending) List(_ context.Context) ([]domain.PendingMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.PendingMessage, len(s.items))
	copy(out, s.items)
	return out, nil
}

// Remove evicts the message with the given id via a linear scan, preserving
// the order of the remainder. ErrNotFound when the id is absent.
func (s *MemoryPending) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Len reports the current queue depth.
func (s *MemoryPending) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), nil
}

// MemoryResponses is a mutex-guarded, slice-backed ResponseStore. Responses
// are append-only and live for the process lifetime.
type MemoryResponses struct {
	mu    sync.Mutex
	items []domain.AdminResponse
	ids   *idAlloc
}

// NewMemoryResponses constructs an empty response log.
func NewMemoryResponses() *MemoryResponses {
	return &MemoryResponses{ids: newIDAlloc(0)}
}

// Publish appends a response to the log. An empty targetUserID broadcasts.
func (s *MemoryResponses) Publish(_ context.Context, adminUsername, text string, atts []domain.Attachment, targetUserID string) (*domain.AdminResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := domain.AdminResponse{
		ID:            s.ids.next(),
		AdminUsername: adminUsername,
		Text:          text,
		Attachments:   atts,
		TargetUserID:  normalizeTarget(targetUserID),
		CreatedAt:     time.Now().UTC(),
	}
	s.items = append(s.items, r)

	out := r
	return &out, nil
}

// Query returns every response visible to userID in insertion order.
func (s *MemoryResponses) Query(_ context.Context, userID string) ([]domain.AdminResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.AdminResponse{}
	for _, r := range s.items {
		if r.VisibleTo(userID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// All returns the full log in insertion order.
func (s *MemoryResponses) All(_ context.Context) ([]domain.AdminResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.AdminResponse, len(s.items))
	copy(out, s.items)
	return out, nil
}
