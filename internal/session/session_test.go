package session

import (
	"errors"
	"testing"
	"time"
)

func TestGetCreatesAndReuses(t *testing.T) {
	m := NewManager(3, time.Hour)

	s := m.Get("")
	if s.ID == "" {
		t.Fatal("expected a generated session ID")
	}
	if again := m.Get(s.ID); again.ID != s.ID {
		t.Errorf("Get(%q) returned new session %q", s.ID, again.ID)
	}
	if other := m.Get("unknown"); other.ID == "unknown" {
		t.Error("unknown IDs must not be adopted")
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestConsumeQuota(t *testing.T) {
	m := NewManager(2, time.Hour)
	id := m.Get("").ID

	for i := 0; i < 2; i++ {
		if _, err := m.Consume(id, false); err != nil {
			t.Fatalf("use %d: %v", i+1, err)
		}
	}
	s, err := m.Consume(id, false)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	if m.Remaining(s) != 0 {
		t.Errorf("Remaining = %d, want 0", m.Remaining(s))
	}

	if _, err := m.Consume(id, true); err != nil {
		t.Errorf("own key should be unmetered, got %v", err)
	}
}

func TestSetKey(t *testing.T) {
	m := NewManager(0, time.Hour)
	id := m.Get("").ID

	s := m.SetKey(id, "user-key")
	if s.ID != id || s.APIKey != "user-key" {
		t.Fatalf("got %+v", s)
	}
	if got := m.Get(id); got.APIKey != "user-key" {
		t.Errorf("key not stored: %+v", got)
	}
}

func TestPrune(t *testing.T) {
	m := NewManager(1, time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	old := m.Get("").ID
	now = now.Add(2 * time.Minute)
	fresh := m.Get("").ID

	if n := m.Prune(); n != 1 {
		t.Fatalf("Prune removed %d, want 1", n)
	}
	if got := m.Get(fresh); got.ID != fresh {
		t.Error("fresh session was pruned")
	}
	if got := m.Get(old); got.ID == old {
		t.Error("stale session survived")
	}
}

func TestPruneDisabled(t *testing.T) {
	m := NewManager(1, 0)
	m.Get("")
	if n := m.Prune(); n != 0 {
		t.Errorf("Prune removed %d with ttl 0", n)
	}
}
