package client

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestNewUserIDShape(t *testing.T) {
	re := regexp.MustCompile(`^user_\d{13}_[0-9a-z]{9}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := NewUserID()
		if !re.MatchString(id) {
			t.Fatalf("id %q does not match expected shape", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestStateStoreRoundTrip(t *testing.T) {
	store := &StateStore{Path: filepath.Join(t.TempDir(), "deep", "state.json")}

	if _, found, err := store.Load(); err != nil || found {
		t.Fatalf("fresh Load = found=%v err=%v, want not found", found, err)
	}

	want := State{UserID: NewUserID(), Username: "alice", HasVisited: true}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, found, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found || got != want {
		t.Fatalf("Load = %+v found=%v, want %+v", got, found, want)
	}
}

func TestStateStoreCorruptFile(t *testing.T) {
	store := &StateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	if err := store.Save(State{UserID: "u"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := writeFile(store.Path, "{broken"); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, _, err := store.Load(); err == nil {
		t.Fatal("Load of corrupt file must error, not silently reset identity")
	}
}
