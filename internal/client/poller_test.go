package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

func TestRunUserMergesEachSnapshot(t *testing.T) {
	var polls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		// The snapshot grows between polls; earlier entries repeat.
		rs := []domain.AdminResponse{{ID: 1, Text: "first", TargetUserID: "all"}}
		if n >= 2 {
			rs = append(rs, domain.AdminResponse{ID: 2, Text: "second", TargetUserID: "u1"})
		}
		json.NewEncoder(w).Encode(map[string]any{"responses": rs})
	}))
	defer srv.Close()

	hist := NewHistory()
	merged := make(chan int, 16)
	p := &Poller{
		API:         NewAPI(srv.URL),
		Log:         zerolog.Nop(),
		Interval:    5 * time.Millisecond,
		OnResponses: func(added int) { merged <- added },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go p.RunUser(ctx, "u1", hist)

	waitAdded := func() int {
		select {
		case n := <-merged:
			return n
		case <-ctx.Done():
			t.Fatal("timed out waiting for a merge")
			return 0
		}
	}
	if n := waitAdded(); n != 1 {
		t.Fatalf("first merge added %d, want 1", n)
	}
	if n := waitAdded(); n != 1 {
		t.Fatalf("second merge added %d, want only the new response", n)
	}
	cancel()

	got := hist.Entries()
	if len(got) != 2 || got[0].Text != "first" || got[1].Text != "second" {
		t.Fatalf("history = %+v", got)
	}
}

func TestRunUserRetriesAfterFailedPoll(t *testing.T) {
	var polls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			// First poll fails; the ticker must carry on.
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"responses": []domain.AdminResponse{{ID: 1, Text: "recovered", TargetUserID: "all"}},
		})
	}))
	defer srv.Close()

	hist := NewHistory()
	merged := make(chan int, 1)
	p := &Poller{
		API:         NewAPI(srv.URL),
		Log:         zerolog.Nop(),
		Interval:    5 * time.Millisecond,
		OnResponses: func(added int) { merged <- added },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go p.RunUser(ctx, "u1", hist)

	select {
	case <-merged:
	case <-ctx.Done():
		t.Fatal("poller did not recover from a failed poll")
	}
	if polls.Load() < 2 {
		t.Fatalf("polls = %d, want at least 2", polls.Load())
	}
}

func TestRunAdminDeliversSnapshots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pending-messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]domain.PendingMessage{
			{ID: 10, UserID: "u1", Username: "alice", Text: "question"},
		})
	}))
	defer srv.Close()

	snapshots := make(chan []domain.PendingMessage, 1)
	p := &Poller{
		API:       NewAPI(srv.URL),
		Log:       zerolog.Nop(),
		Interval:  5 * time.Millisecond,
		OnPending: func(msgs []domain.PendingMessage) { snapshots <- msgs },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go p.RunAdmin(ctx)

	select {
	case msgs := <-snapshots:
		if len(msgs) != 1 || msgs[0].ID != 10 {
			t.Fatalf("snapshot = %+v", msgs)
		}
	case <-ctx.Done():
		t.Fatal("no snapshot delivered")
	}
}

func TestPollerStopsOnCancel(t *testing.T) {
	var polls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"responses": []domain.AdminResponse{}})
	}))
	defer srv.Close()

	p := &Poller{API: NewAPI(srv.URL), Log: zerolog.Nop(), Interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.RunUser(ctx, "u1", NewHistory())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunUser did not return after cancel")
	}
}
