package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-relay-backend/internal/domain"
	"github.com/tbourn/go-relay-backend/internal/store"
)

//
// Inline fakes
//

type fakePending struct {
	enqueued []domain.PendingMessage
	removed  []int64
	failWith error
	nextID   int64
}

func (f *fakePending) Enqueue(_ context.Context, userID, username, text string, atts []domain.Attachment) (*domain.PendingMessage, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.nextID++
	m := domain.PendingMessage{
		ID: f.nextID, UserID: userID, Username: username, Text: text,
		Attachments: atts, CreatedAt: time.Now().UTC(), Status: domain.StatusPending,
	}
	f.enqueued = append(f.enqueued, m)
	return &m, nil
}

func (f *fakePending) List(context.Context) ([]domain.PendingMessage, error) {
	return f.enqueued, nil
}

func (f *fakePending) Remove(_ context.Context, id int64) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakePending) Len(context.Context) (int, error) { return len(f.enqueued), nil }

type fakeResponses struct {
	published []domain.AdminResponse
	nextID    int64
}

func (f *fakeResponses) Publish(_ context.Context, adminUsername, text string, atts []domain.Attachment, targetUserID string) (*domain.AdminResponse, error) {
	f.nextID++
	if targetUserID == "" {
		targetUserID = domain.TargetAll
	}
	r := domain.AdminResponse{
		ID: f.nextID, AdminUsername: adminUsername, Text: text,
		Attachments: atts, TargetUserID: targetUserID, CreatedAt: time.Now().UTC(),
	}
	f.published = append(f.published, r)
	return &r, nil
}

func (f *fakeResponses) Query(_ context.Context, userID string) ([]domain.AdminResponse, error) {
	var out []domain.AdminResponse
	for _, r := range f.published {
		if r.VisibleTo(userID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResponses) All(context.Context) ([]domain.AdminResponse, error) {
	return f.published, nil
}

func newTestService() (*RelayService, *fakePending, *fakeResponses) {
	p := &fakePending{}
	r := &fakeResponses{}
	return &RelayService{
		Pending:       p,
		Responses:     r,
		AdminUsername: "motya",
		MaxTextRunes:  100,
	}, p, r
}

//
// Resolve
//

func TestResolveRoles(t *testing.T) {
	svc, _, _ := newTestService()

	cases := []struct {
		name    string
		isAdmin bool
	}{
		{"alice", false},
		{"motya", true},
		{"  motya  ", true}, // surrounding space ignored
		{"MOTYA", false},    // name match is exact
		{"", false},
	}
	for _, tc := range cases {
		id := svc.Resolve(tc.name)
		if id.IsAdmin != tc.isAdmin {
			t.Errorf("Resolve(%q).IsAdmin = %v, want %v", tc.name, id.IsAdmin, tc.isAdmin)
		}
		wantRole := domain.RoleRegular
		if tc.isAdmin {
			wantRole = domain.RoleAdmin
		}
		if id.Role != wantRole {
			t.Errorf("Resolve(%q).Role = %q, want %q", tc.name, id.Role, wantRole)
		}
	}
}

//
// Submit
//

func TestSubmitRegularGoesToQueue(t *testing.T) {
	svc, p, r := newTestService()

	res, err := svc.Submit(context.Background(), Submission{
		UserID: "u1", Username: "alice", Text: "help me",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Admin || res.Pending == nil || res.Response != nil {
		t.Fatalf("result = %+v, want pending route", res)
	}
	if len(p.enqueued) != 1 || len(r.published) != 0 {
		t.Fatalf("queued=%d published=%d, want 1/0", len(p.enqueued), len(r.published))
	}
}

func TestSubmitAdminPublishes(t *testing.T) {
	svc, p, r := newTestService()

	res, err := svc.Submit(context.Background(), Submission{
		Username: "motya", Text: "the answer", TargetUserID: "u1",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Admin || res.Response == nil {
		t.Fatalf("result = %+v, want response route", res)
	}
	if res.Response.TargetUserID != "u1" {
		t.Fatalf("TargetUserID = %q, want u1", res.Response.TargetUserID)
	}
	if len(p.enqueued) != 0 || len(r.published) != 1 {
		t.Fatalf("queued=%d published=%d, want 0/1", len(p.enqueued), len(r.published))
	}
}

func TestSubmitClaimedAdminPublishes(t *testing.T) {
	// The multipart form carries an explicit isAdmin flag; the claim routes
	// like the name match does.
	svc, _, r := newTestService()

	res, err := svc.Submit(context.Background(), Submission{
		Username: "someone-else", Text: "reply", ClaimedAdmin: true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Admin || len(r.published) != 1 {
		t.Fatalf("claimed admin not routed to response log: %+v", res)
	}
	if r.published[0].TargetUserID != domain.TargetAll {
		t.Fatalf("empty target = %q, want broadcast", r.published[0].TargetUserID)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Submit(ctx, Submission{Text: "hi"}); !errors.Is(err, ErrUsernameRequired) {
		t.Fatalf("missing username err = %v", err)
	}
	if _, err := svc.Submit(ctx, Submission{Username: "alice"}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("empty text err = %v", err)
	}
	if _, err := svc.Submit(ctx, Submission{Username: "alice", Text: "  \n "}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("whitespace text err = %v", err)
	}
	long := strings.Repeat("x", 101)
	if _, err := svc.Submit(ctx, Submission{Username: "alice", Text: long}); !errors.Is(err, ErrTooLong) {
		t.Fatalf("too long err = %v", err)
	}
}

func TestSubmitEmptyTextWithAttachmentAccepted(t *testing.T) {
	svc, p, _ := newTestService()

	res, err := svc.Submit(context.Background(), Submission{
		UserID: "u1", Username: "alice",
		Attachments: []domain.Attachment{{StorageKey: "k", OriginalName: "pic.png", Size: 1}},
	})
	if err != nil {
		t.Fatalf("Submit with file only: %v", err)
	}
	if res.Pending == nil || len(p.enqueued) != 1 {
		t.Fatalf("file-only submission not queued: %+v", res)
	}
}

func TestSubmitDefaultsAnonymousUserID(t *testing.T) {
	svc, p, _ := newTestService()

	if _, err := svc.Submit(context.Background(), Submission{Username: "alice", Text: "hi"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p.enqueued[0].UserID != "anonymous" {
		t.Fatalf("UserID = %q, want anonymous", p.enqueued[0].UserID)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	svc, p, _ := newTestService()
	p.failWith = store.ErrQueueFull

	if _, err := svc.Submit(context.Background(), Submission{Username: "alice", Text: "hi"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
}

//
// MarkResponded
//

func TestMarkRespondedMapsNotFound(t *testing.T) {
	svc, p, _ := newTestService()

	if err := svc.MarkResponded(context.Background(), 42); err != nil {
		t.Fatalf("MarkResponded: %v", err)
	}
	if len(p.removed) != 1 || p.removed[0] != 42 {
		t.Fatalf("removed = %v, want [42]", p.removed)
	}

	p.failWith = store.ErrNotFound
	if err := svc.MarkResponded(context.Background(), 42); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("err = %v, want ErrMessageNotFound", err)
	}
}

func TestClearResponsesIsNoOp(t *testing.T) {
	svc, _, r := newTestService()
	if _, err := svc.Responses.Publish(context.Background(), "motya", "keep me", nil, ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := svc.ClearResponses(context.Background(), "u1"); err != nil {
		t.Fatalf("ClearResponses: %v", err)
	}
	if len(r.published) != 1 {
		t.Fatal("ClearResponses must not delete anything server-side")
	}
}
