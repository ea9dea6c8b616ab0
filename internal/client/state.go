package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// State is the client's persisted identity: who this terminal is talking as
// and whether it has seen the welcome message before. It survives restarts so
// the generated user ID stays stable and the server keeps routing responses
// to the same identity.
type State struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	IsAdmin    bool   `json:"isAdmin"`
	HasVisited bool   `json:"hasVisitedBefore"`
}

// NewUserID generates a fresh anonymous identifier. The millisecond prefix
// keeps IDs roughly sortable; the base36 suffix disambiguates clients started
// in the same millisecond.
func NewUserID() string {
	return fmt.Sprintf("user_%d_%s", time.Now().UnixMilli(), randBase36(9))
}

func randBase36(n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[rand.Intn(len(alphabet))])
	}
	return b.String()
}

// StateStore persists State as a JSON file, the terminal analog of browser
// local storage.
type StateStore struct {
	Path string
}

// Load reads the persisted state. A missing file is not an error: it returns
// a zero State and found=false so the caller can run first-visit setup.
func (s *StateStore) Load() (State, bool, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, false, fmt.Errorf("corrupt state file %s: %w", s.Path, err)
	}
	return st, true, nil
}

// Save writes the state atomically (write-then-rename) so a crash mid-write
// never leaves a truncated file behind.
func (s *StateStore) Save(st State) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}
