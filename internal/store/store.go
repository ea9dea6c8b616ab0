// Package store defines the injectable storage abstraction behind the relay:
// the pending-message queue and the append-only admin-response log. Two
// implementations are provided: a mutex-guarded in-memory one (the default,
// process-lifetime best-effort semantics) and a SQLite-backed one over
// internal/repo, so the concurrency discipline stays isolated from the relay
// logic and callers never change when the backend does.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

var (
	// ErrNotFound is returned by Remove when no queued message has the
	// given id (already resolved, or invalid).
	ErrNotFound = errors.New("message not found")

	// ErrQueueFull is returned by Enqueue when a bounded queue is at
	// capacity. The unbounded default never returns it.
	ErrQueueFull = errors.New("pending queue full")
)

// PendingStore is the queue of user messages awaiting an admin reply.
// Implementations must be safe for concurrent use; appends and removals are
// atomic with respect to each other.
type PendingStore interface {
	// Enqueue appends a message to the tail and assigns its id.
	Enqueue(ctx context.Context, userID, username, text string, atts []domain.Attachment) (*domain.PendingMessage, error)
	// List returns the current contents in insertion order.
	List(ctx context.Context) ([]domain.PendingMessage, error)
	// Remove evicts the message with the given id, or reports ErrNotFound.
	Remove(ctx context.Context, id int64) error
	// Len reports the current queue depth.
	Len(ctx context.Context) (int, error)
}

// ResponseStore is the append-only log of admin replies.
type ResponseStore interface {
	// Publish appends a response. An empty targetUserID means broadcast.
	Publish(ctx context.Context, adminUsername, text string, atts []domain.Attachment, targetUserID string) (*domain.AdminResponse, error)
	// Query returns every response visible to userID in insertion order.
	// A pure read; the store keeps no per-user read cursor.
	Query(ctx context.Context, userID string) ([]domain.AdminResponse, error)
	// All returns the full log in insertion order (admin audit view).
	All(ctx context.Context) ([]domain.AdminResponse, error)
}

// idAlloc hands out strictly increasing wall-clock-derived ids. The value is
// the current unix-millisecond timestamp unless that would not advance past
// the previously issued id, in which case last+1 is used. Assignment is
// serialized, so concurrent submits within the same millisecond still get
// distinct, ordered ids.
type idAlloc struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newIDAlloc(seed int64) *idAlloc {
	return &idAlloc{last: seed, now: time.Now}
}

func (a *idAlloc) next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.now().UnixMilli()
	if id <= a.last {
		id = a.last + 1
	}
	a.last = id
	return id
}

// normalizeTarget maps an absent target to the broadcast sentinel.
func normalizeTarget(targetUserID string) string {
	if targetUserID == "" {
		return domain.TargetAll
	}
	return targetUserID
}
