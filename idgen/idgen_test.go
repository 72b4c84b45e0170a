package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7Unique(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate ID: %s", id)
		}
		seen[id] = true
	}
}

func TestNanoIDLength(t *testing.T) {
	gen := NanoID(10)
	id := gen()
	if len(id) != 10 {
		t.Errorf("length: got %d, want 10", len(id))
	}
	for _, c := range id {
		if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", c) {
			t.Errorf("unexpected character %q in %q", c, id)
		}
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("ses_", NanoID(6))
	id := gen()
	if !strings.HasPrefix(id, "ses_") {
		t.Errorf("missing prefix: %q", id)
	}
	if len(id) != 10 {
		t.Errorf("length: got %d, want 10", len(id))
	}
}

func TestEntityGenerators(t *testing.T) {
	cases := []struct {
		name   string
		gen    Generator
		prefix string
	}{
		{"session", Session(), "ses_"},
		{"journal", Journal(), "jrn_"},
		{"request", Request(), "req_"},
	}
	for _, tc := range cases {
		if id := tc.gen(); !strings.HasPrefix(id, tc.prefix) {
			t.Errorf("%s: got %q, want prefix %q", tc.name, id, tc.prefix)
		}
	}
}
