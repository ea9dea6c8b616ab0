package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

// History is the client-resident chat transcript. The server never stores
// per-user history; this mirror is the only durable record a user has. It
// reconciles full response snapshots from polling into an append-only entry
// list, deduplicating by response ID so re-polling the same snapshot is a
// no-op.
type History struct {
	mu      sync.Mutex
	entries []domain.ChatHistoryEntry
	seen    map[int64]struct{}
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{seen: make(map[int64]struct{})}
}

// Bootstrap seeds an empty history with the welcome greeting. It does nothing
// when entries already exist, so reload never duplicates the greeting.
func (h *History) Bootstrap(welcome string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) > 0 {
		return
	}
	h.entries = append(h.entries, domain.ChatHistoryEntry{
		Role: domain.EntryBot,
		Text: welcome,
	})
}

// AppendLocal appends an optimistic local entry (the user's own message,
// shown before the server confirms) and returns a token for Rollback.
func (h *History) AppendLocal(entry domain.ChatHistoryEntry) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	return len(h.entries) - 1
}

// Rollback removes the entry at the given token, used when a send fails
// after the optimistic echo. Tokens are only valid until the next mutation.
func (h *History) Rollback(token int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if token < 0 || token >= len(h.entries) {
		return
	}
	h.entries = append(h.entries[:token], h.entries[token+1:]...)
}

// Merge reconciles a full response snapshot into the history. Responses whose
// IDs were already merged are skipped; new ones are appended in snapshot
// order, one entry per attachment plus one for the text when present. Exactly
// one entry per response carries the response ID: the text entry, or the
// first attachment entry when there is no text. It returns the number of
// entries added.
func (h *History) Merge(responses []domain.AdminResponse) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	added := 0
	for _, r := range responses {
		if _, ok := h.seen[r.ID]; ok {
			continue
		}
		h.seen[r.ID] = struct{}{}
		for i := range r.Attachments {
			att := r.Attachments[i]
			e := domain.ChatHistoryEntry{
				Role:       domain.EntryBot,
				Attachment: &att,
			}
			if r.Text == "" && i == 0 {
				e.ResponseID = r.ID
			}
			h.entries = append(h.entries, e)
			added++
		}
		if r.Text != "" {
			h.entries = append(h.entries, domain.ChatHistoryEntry{
				Role:       domain.EntryBot,
				Text:       r.Text,
				ResponseID: r.ID,
			})
			added++
		}
	}
	return added
}

// Entries returns a copy of the transcript in order.
func (h *History) Entries() []domain.ChatHistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.ChatHistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len reports the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear wipes the transcript and the dedup set. Cleared responses will be
// re-merged on the next poll; clearing is a local presentation choice, not a
// server-side delete.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.seen = make(map[int64]struct{})
}

// historyFile is the on-disk shape. The dedup set is persisted alongside the
// entries so a reload does not re-append responses that were merged and then
// cleared from view.
type historyFile struct {
	Entries []domain.ChatHistoryEntry `json:"chatHistory"`
	Seen    []int64                   `json:"seenResponseIds"`
}

// Save persists the history to path as JSON.
func (h *History) Save(path string) error {
	h.mu.Lock()
	f := historyFile{Entries: h.entries, Seen: make([]int64, 0, len(h.seen))}
	for id := range h.seen {
		f.Seen = append(f.Seen, id)
	}
	h.mu.Unlock()

	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load restores a history from path. A missing file yields an empty history.
func (h *History) Load(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var f historyFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = f.Entries
	h.seen = make(map[int64]struct{}, len(f.Seen))
	for _, id := range f.Seen {
		h.seen[id] = struct{}{}
	}
	// Older files may predate the explicit dedup set.
	for _, e := range h.entries {
		if e.ResponseID != 0 {
			h.seen[e.ResponseID] = struct{}{}
		}
	}
	return nil
}
