package client

import (
	"path/filepath"
	"testing"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

func resp(id int64, text, target string, atts ...domain.Attachment) domain.AdminResponse {
	return domain.AdminResponse{
		ID: id, AdminUsername: "motya", Text: text,
		TargetUserID: target, Attachments: atts,
	}
}

func TestBootstrapOnlyOnEmpty(t *testing.T) {
	h := NewHistory()
	h.Bootstrap("hello there")
	h.Bootstrap("hello there")

	got := h.Entries()
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
	if got[0].Role != domain.EntryBot || got[0].Text != "hello there" {
		t.Fatalf("welcome entry = %+v", got[0])
	}

	h2 := NewHistory()
	h2.AppendLocal(domain.ChatHistoryEntry{Role: domain.EntryUser, Text: "already talking"})
	h2.Bootstrap("hello there")
	if h2.Len() != 1 {
		t.Fatal("Bootstrap must not fire on a non-empty history")
	}
}

func TestMergeDeduplicatesByResponseID(t *testing.T) {
	h := NewHistory()

	snapshot := []domain.AdminResponse{
		resp(101, "first", domain.TargetAll),
		resp(102, "second", "u1"),
	}
	if added := h.Merge(snapshot); added != 2 {
		t.Fatalf("first merge added %d, want 2", added)
	}

	// Re-polling the same full snapshot is a no-op.
	if added := h.Merge(snapshot); added != 0 {
		t.Fatalf("re-merge added %d, want 0", added)
	}

	// A grown snapshot only contributes the new tail.
	grown := append(snapshot, resp(103, "third", domain.TargetAll))
	if added := h.Merge(grown); added != 1 {
		t.Fatalf("grown merge added %d, want 1", added)
	}

	got := h.Entries()
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Text != want || got[i].Role != domain.EntryBot {
			t.Fatalf("entry %d = %+v, want %q", i, got[i], want)
		}
	}
}

func TestMergeAttachmentsBecomeEntries(t *testing.T) {
	h := NewHistory()
	att := domain.Attachment{StorageKey: "k1.png", OriginalName: "diagram.png", Size: 10}

	h.Merge([]domain.AdminResponse{resp(201, "see attached", domain.TargetAll, att)})

	got := h.Entries()
	if len(got) != 2 {
		t.Fatalf("entries = %d, want file entry + text entry", len(got))
	}
	if got[0].Attachment == nil || got[0].Attachment.OriginalName != "diagram.png" {
		t.Fatalf("file entry = %+v", got[0])
	}
	if got[0].ResponseID != 0 {
		t.Fatalf("file entry carries response id %d, want it only on the text entry", got[0].ResponseID)
	}
	if got[1].Text != "see attached" || got[1].ResponseID != 201 {
		t.Fatalf("text entry = %+v", got[1])
	}
}

func TestMergeStampsResponseIDOnce(t *testing.T) {
	h := NewHistory()
	a1 := domain.Attachment{StorageKey: "k1.png", OriginalName: "one.png", Size: 1}
	a2 := domain.Attachment{StorageKey: "k2.png", OriginalName: "two.png", Size: 2}

	// Text plus two files, then a text-less file-only response.
	h.Merge([]domain.AdminResponse{
		resp(211, "see attached", domain.TargetAll, a1, a2),
		resp(212, "", domain.TargetAll, a1, a2),
	})

	counts := map[int64]int{}
	for _, e := range h.Entries() {
		if e.ResponseID != 0 {
			counts[e.ResponseID]++
		}
	}
	for _, id := range []int64{211, 212} {
		if counts[id] != 1 {
			t.Fatalf("response %d stamped on %d entries, want exactly 1", id, counts[id])
		}
	}

	// Text-less responses put the id on their first file entry.
	got := h.Entries()
	if got[3].ResponseID != 212 || got[3].Attachment == nil || got[3].Attachment.OriginalName != "one.png" {
		t.Fatalf("first file entry of text-less response = %+v", got[3])
	}
}

func TestRollbackRemovesOptimisticEcho(t *testing.T) {
	h := NewHistory()
	h.Bootstrap("welcome")

	token := h.AppendLocal(domain.ChatHistoryEntry{Role: domain.EntryUser, Text: "doomed send"})
	if h.Len() != 2 {
		t.Fatalf("len = %d", h.Len())
	}
	h.Rollback(token)
	got := h.Entries()
	if len(got) != 1 || got[0].Text != "welcome" {
		t.Fatalf("rollback left %+v", got)
	}

	// Stale or invalid tokens are ignored.
	h.Rollback(99)
	h.Rollback(-1)
	if h.Len() != 1 {
		t.Fatal("invalid token mutated history")
	}
}

func TestClearForgetsEverything(t *testing.T) {
	h := NewHistory()
	h.Merge([]domain.AdminResponse{resp(301, "msg", domain.TargetAll)})
	h.Clear()

	if h.Len() != 0 {
		t.Fatalf("len = %d after clear", h.Len())
	}
	// Cleared responses come back on the next poll.
	if added := h.Merge([]domain.AdminResponse{resp(301, "msg", domain.TargetAll)}); added != 1 {
		t.Fatalf("post-clear merge added %d, want 1", added)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")

	h := NewHistory()
	h.Bootstrap("welcome")
	h.AppendLocal(domain.ChatHistoryEntry{Role: domain.EntryUser, Text: "my question"})
	h.Merge([]domain.AdminResponse{resp(401, "the reply", "u1")})
	if err := h.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewHistory()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := h.Entries()
	got := loaded.Entries()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	// The dedup set survives the round trip.
	if added := loaded.Merge([]domain.AdminResponse{resp(401, "the reply", "u1")}); added != 0 {
		t.Fatalf("reloaded history re-merged a seen response")
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	h := NewHistory()
	if err := h.Load(filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	if h.Len() != 0 {
		t.Fatalf("len = %d", h.Len())
	}
}
