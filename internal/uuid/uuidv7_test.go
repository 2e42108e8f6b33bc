package uuid

import (
	"testing"

	googleuuid "github.com/google/uuid"
)

func TestNew(t *testing.T) {
	t.Run("generates_version_7", func(t *testing.T) {
		id := New()
		parsed, err := googleuuid.Parse(id)
		if err != nil {
			t.Fatalf("expected valid uuid, got %q: %v", id, err)
		}
		if parsed.Version() != 7 {
			t.Errorf("expected version 7, got %d", parsed.Version())
		}
	})

	t.Run("unique_values", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)
		for i := 0; i < 1000; i++ {
			id := New()
			if _, ok := seen[id]; ok {
				t.Fatalf("duplicate id %s", id)
			}
			seen[id] = struct{}{}
		}
	})
}

func TestParse(t *testing.T) {
	got, err := Parse("0190F5C0-8E2B-7A3C-9D4E-1F2A3B4C5D6E")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0190f5c0-8e2b-7a3c-9d4e-1f2a3b4c5d6e" {
		t.Errorf("expected lower-cased uuid, got %q", got)
	}

	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected error for invalid uuid")
	}
	if IsValid("") {
		t.Error("expected empty string to be invalid")
	}
}
