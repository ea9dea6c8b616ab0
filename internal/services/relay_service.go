// Package services – RelayService
//
// This file implements RelayService, the application-level component that
// owns message routing between the two stores. It resolves the caller's role
// from the display name, appends regular submissions to the pending queue,
// appends admin submissions to the response log (broadcast or directed), and
// serves the two poll reads: the admin's queue snapshot and a user's visible
// responses.
//
// Observability: public methods are OpenTelemetry-instrumented, and the
// service keeps the relay Prometheus series (queue depth, routed messages,
// published responses) up to date.

package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-relay-backend/internal/domain"
	"github.com/tbourn/go-relay-backend/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// relayPendingDepth tracks the number of unresolved messages in the queue.
	relayPendingDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_pending_messages",
		Help: "Current number of messages awaiting an admin reply.",
	})

	// relayMessagesRouted counts accepted submissions by route.
	relayMessagesRouted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_messages_routed_total",
		Help: "Total accepted submissions, labeled by routing outcome.",
	}, []string{"route"}) // "pending" | "response"
)

func init() {
	prometheus.MustRegister(relayPendingDepth, relayMessagesRouted)
}

// Submission is one inbound message, regular or admin, with or without
// attachments.
type Submission struct {
	UserID   string
	Username string
	Text     string

	Attachments []domain.Attachment

	// TargetUserID addresses an admin reply; empty means broadcast.
	// Ignored for regular submissions.
	TargetUserID string

	// ClaimedAdmin mirrors the multipart form's isAdmin flag. Either the
	// claim or the name check routes to the response log; the claim is as
	// unverified as the name, which is the relay's stated trust model.
	ClaimedAdmin bool
}

// SubmitResult reports how a submission was routed. Exactly one of Pending
// and Response is set.
type SubmitResult struct {
	// Admin is true when the submission was published as an admin response.
	Admin bool
	// Pending is the queued message for a regular submission.
	Pending *domain.PendingMessage
	// Response is the published reply for an admin submission.
	Response *domain.AdminResponse
}

// RelayService routes messages between anonymous users and the single admin.
type RelayService struct {
	Pending   store.PendingStore
	Responses store.ResponseStore

	// AdminUsername is the one display name that resolves to the admin role.
	AdminUsername string

	// MaxTextRunes optionally caps message text length (0 = no cap).
	MaxTextRunes int
}

// Resolve maps a display name to an identity. Deterministic and
// side-effect-free; it never fails and performs no secret verification.
// This is a placeholder trust boundary, not a security control.
func (s *RelayService) Resolve(username string) domain.Identity {
	username = strings.TrimSpace(username)
	id := domain.Identity{Username: username, Role: domain.RoleRegular}
	if username != "" && username == s.AdminUsername {
		id.Role = domain.RoleAdmin
		id.IsAdmin = true
	}
	return id
}

// Submit validates a submission and routes it by the sender's resolved role:
// regular users enqueue onto the pending queue, the admin publishes into the
// response log (TargetUserID empty = broadcast). Text may be empty when
// attachments are present.
func (s *RelayService) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	tr := otel.Tracer("services/RelayService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("user.id", sub.UserID),
			attribute.Int("attachments", len(sub.Attachments)),
		),
	)
	defer span.End()

	username := strings.TrimSpace(sub.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	text := strings.TrimSpace(sub.Text)
	if text == "" && len(sub.Attachments) == 0 {
		return nil, ErrEmptyMessage
	}
	if s.MaxTextRunes > 0 && utf8.RuneCountInString(text) > s.MaxTextRunes {
		return nil, ErrTooLong
	}
	userID := sub.UserID
	if userID == "" {
		userID = "anonymous"
	}

	if sub.ClaimedAdmin || s.Resolve(username).IsAdmin {
		r, err := s.Responses.Publish(ctx, username, text, sub.Attachments, sub.TargetUserID)
		if err != nil {
			return nil, err
		}
		relayMessagesRouted.WithLabelValues("response").Inc()
		return &SubmitResult{Admin: true, Response: r}, nil
	}

	m, err := s.Pending.Enqueue(ctx, userID, username, text, sub.Attachments)
	if err != nil {
		if errors.Is(err, store.ErrQueueFull) {
			return nil, ErrQueueFull
		}
		return nil, err
	}
	relayMessagesRouted.WithLabelValues("pending").Inc()
	s.observeDepth(ctx)
	return &SubmitResult{Pending: m}, nil
}

// PendingMessages returns the queue snapshot in insertion order. Each poll
// is a full snapshot: the server does not track what the admin has already
// fetched.
func (s *RelayService) PendingMessages(ctx context.Context) ([]domain.PendingMessage, error) {
	tr := otel.Tracer("services/RelayService")
	ctx, span := tr.Start(ctx, "PendingMessages")
	defer span.End()

	return s.Pending.List(ctx)
}

// MarkResponded evicts a queued message once the admin has replied to it.
// ErrMessageNotFound when the id is absent; callers report it, they do not
// retry.
func (s *RelayService) MarkResponded(ctx context.Context, id int64) error {
	tr := otel.Tracer("services/RelayService")
	ctx, span := tr.Start(ctx, "MarkResponded",
		trace.WithAttributes(attribute.Int64("message.id", id)),
	)
	defer span.End()

	if err := s.Pending.Remove(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	s.observeDepth(ctx)
	return nil
}

// ResponsesFor returns every response visible to userID in insertion order:
// broadcasts plus responses directed exactly at that id. A pure read;
// delivery state lives entirely on the client.
func (s *RelayService) ResponsesFor(ctx context.Context, userID string) ([]domain.AdminResponse, error) {
	tr := otel.Tracer("services/RelayService")
	ctx, span := tr.Start(ctx, "ResponsesFor",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return s.Responses.Query(ctx, userID)
}

// AllResponses returns the full response log (admin audit view).
func (s *RelayService) AllResponses(ctx context.Context) ([]domain.AdminResponse, error) {
	return s.Responses.All(ctx)
}

// ClearResponses acknowledges a client-side history reset. The server keeps
// no per-user delivery state, so there is nothing to clear here; the call is
// an idempotent no-op kept for protocol compatibility.
func (s *RelayService) ClearResponses(context.Context, string) error {
	return nil
}

// observeDepth refreshes the queue-depth gauge, best effort.
func (s *RelayService) observeDepth(ctx context.Context) {
	if n, err := s.Pending.Len(ctx); err == nil {
		relayPendingDepth.Set(float64(n))
	}
}
