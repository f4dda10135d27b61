package frontierstore

import (
	"context"
	"os"
	"testing"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "frontierstore-test-")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return New(newFakeRedis(), dir), dir
}

func TestEnsureDomainCreatesMetadataOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	meta, err := s.EnsureDomain(ctx, "example.com", true)
	if err != nil {
		t.Fatalf("EnsureDomain: %v", err)
	}
	if !meta.IsSeeded {
		t.Fatalf("expected IsSeeded true")
	}
	if meta.FilePath == "" {
		t.Fatalf("expected non-empty FilePath")
	}

	again, err := s.EnsureDomain(ctx, "example.com", false)
	if err != nil {
		t.Fatalf("EnsureDomain (second call): %v", err)
	}
	if again.FilePath != meta.FilePath {
		t.Fatalf("FilePath changed across calls: %q vs %q", again.FilePath, meta.FilePath)
	}
	if !again.IsSeeded {
		t.Fatalf("second call should not un-seed an already-seeded domain")
	}
}

func TestAppendAndReadEntryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	meta, err := s.EnsureDomain(ctx, "example.com", false)
	if err != nil {
		t.Fatalf("EnsureDomain: %v", err)
	}

	e := Entry{URL: "http://example.com/a", Depth: 1, Priority: 1.0, AddedTimestamp: 1700000000}
	size, err := s.AppendEntry(ctx, "example.com", meta.FilePath, e)
	if err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
	if size != 1 {
		t.Fatalf("expected frontier_size 1, got %d", size)
	}

	got, err := s.ReadEntryAt("example.com", meta.FilePath, 0)
	if err != nil {
		t.Fatalf("ReadEntryAt: %v", err)
	}
	if got != e {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestMarkQueuedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	pushed, err := s.MarkQueued(ctx, "example.com")
	if err != nil {
		t.Fatalf("MarkQueued: %v", err)
	}
	if !pushed {
		t.Fatalf("expected first MarkQueued to push")
	}

	pushed, err = s.MarkQueued(ctx, "example.com")
	if err != nil {
		t.Fatalf("MarkQueued (second): %v", err)
	}
	if pushed {
		t.Fatalf("expected second MarkQueued to be a no-op")
	}

	domain, ok, err := s.ClaimDomain(ctx)
	if err != nil {
		t.Fatalf("ClaimDomain: %v", err)
	}
	if !ok || domain != "example.com" {
		t.Fatalf("ClaimDomain = %q, %v, want example.com, true", domain, ok)
	}

	_, ok, err = s.ClaimDomain(ctx)
	if err != nil {
		t.Fatalf("ClaimDomain (empty queue): %v", err)
	}
	if ok {
		t.Fatalf("expected empty queue after single claim")
	}
}

func TestClaimThenRequeueAllowsReClaim(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, err := s.MarkQueued(ctx, "example.com"); err != nil {
		t.Fatalf("MarkQueued: %v", err)
	}
	if _, _, err := s.ClaimDomain(ctx); err != nil {
		t.Fatalf("ClaimDomain: %v", err)
	}
	if err := s.RequeueDomain(ctx, "example.com"); err != nil {
		t.Fatalf("RequeueDomain: %v", err)
	}

	domain, ok, err := s.ClaimDomain(ctx)
	if err != nil {
		t.Fatalf("ClaimDomain (after requeue): %v", err)
	}
	if !ok || domain != "example.com" {
		t.Fatalf("ClaimDomain after requeue = %q, %v", domain, ok)
	}
}

func TestEnsureDomainRepairsSkewedFile(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStore(t)

	// Simulate a prior crash: a frontier file with content exists on
	// disk but Redis has no metadata hash for the domain.
	relPath := RelativePath("example.com")
	absPath := dir + "/" + relPath
	if err := os.MkdirAll(parentDir(absPath), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(absPath, []byte("stale|0|1.0|1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	meta, err := s.EnsureDomain(ctx, "example.com", false)
	if err != nil {
		t.Fatalf("EnsureDomain: %v", err)
	}
	if meta.FrontierSize != 0 {
		t.Fatalf("expected fresh FrontierSize 0, got %d", meta.FrontierSize)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected orphaned frontier file to be truncated, size=%d", info.Size())
	}
}

func parentDir(p string) string {
	i := len(p) - 1
	for i >= 0 && p[i] != '/' {
		i--
	}
	if i < 0 {
		return "."
	}
	return p[:i]
}
