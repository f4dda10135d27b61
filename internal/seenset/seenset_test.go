package seenset

import (
	"context"
	"testing"
)

func TestLocalBloomSeenSetBasic(t *testing.T) {
	ctx := context.Background()
	s := NewLocalBloomSeenSet()

	present, err := s.Contains(ctx, "http://example.com/a")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if present {
		t.Fatal("expected fresh filter to not contain url")
	}

	if err := s.Add(ctx, "http://example.com/a"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	present, err = s.Contains(ctx, "http://example.com/a")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !present {
		t.Fatal("expected filter to report the added url as present")
	}
}

func TestLocalBloomSeenSetReset(t *testing.T) {
	ctx := context.Background()
	s := NewLocalBloomSeenSet()

	_ = s.Add(ctx, "http://example.com/a")
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	present, err := s.Contains(ctx, "http://example.com/a")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if present {
		t.Fatal("expected filter to be empty after reset")
	}
}
