package collection

import (
	"strings"
	"testing"
)

func TestNewSlug_Format(t *testing.T) {
	slug, err := NewSlug()
	if err != nil {
		t.Fatalf("NewSlug() error = %v", err)
	}

	if len(slug) != slugLength {
		t.Errorf("slug length = %d, want %d", len(slug), slugLength)
	}
	for _, c := range slug {
		if !strings.ContainsRune(slugAlphabet, c) {
			t.Errorf("slug contains invalid character: %q", c)
		}
	}
}

func TestNewSlug_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		slug, err := NewSlug()
		if err != nil {
			t.Fatalf("NewSlug() error = %v", err)
		}
		if seen[slug] {
			t.Fatalf("duplicate slug generated: %s", slug)
		}
		seen[slug] = true
	}
}
