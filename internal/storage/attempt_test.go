package storage

import "testing"

func TestNewAttemptID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewAttemptID()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(id) != 26 {
			t.Fatalf("expected 26 characters, got %d (%s)", len(id), id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
