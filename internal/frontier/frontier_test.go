package frontier

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/politeweb/crawler/internal/frontierstore"
	"github.com/politeweb/crawler/internal/politeness"
	"github.com/politeweb/crawler/internal/seenset"
)

type allowAllPoliteness struct {
	disallow map[string]bool
}

func (p *allowAllPoliteness) IsURLAllowed(ctx context.Context, rawURL string) (bool, error) {
	return !p.disallow[rawURL], nil
}

func (p *allowAllPoliteness) CanFetchDomainNow(ctx context.Context, domain string) (bool, error) {
	return true, nil
}

func (p *allowAllPoliteness) RecordDomainFetchAttempt(ctx context.Context, domain string) error {
	return nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir, err := os.MkdirTemp("", "frontier-test-")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store := frontierstore.New(frontierstore.NewMemRedisClient(), dir)
	politeness := &allowAllPoliteness{disallow: make(map[string]bool)}
	seen := seenset.NewLocalBloomSeenSet()
	return New(store, politeness, seen, nil)
}

func TestAddThenGetYieldsURL(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	result, err := m.AddURLsBatch(ctx, []string{"http://a.com/"}, 0, true)
	if err != nil {
		t.Fatalf("AddURLsBatch: %v", err)
	}
	if result.Accepted != 1 {
		t.Fatalf("expected 1 accepted, got %d", result.Accepted)
	}

	claimed, err := m.GetNextURL(ctx)
	if err != nil {
		t.Fatalf("GetNextURL: %v", err)
	}
	if claimed == nil {
		t.Fatalf("expected a claimed URL, got none")
	}
	if claimed.URL != "http://a.com/" || claimed.Domain != "a.com" {
		t.Fatalf("unexpected claim: %+v", claimed)
	}

	next, err := m.GetNextURL(ctx)
	if err != nil {
		t.Fatalf("GetNextURL (second): %v", err)
	}
	if next != nil {
		t.Fatalf("expected no further URL, got %+v", next)
	}
}

func TestAddDedupesWithinBatch(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	result, err := m.AddURLsBatch(ctx, []string{"http://a.com/", "http://a.com/"}, 0, true)
	if err != nil {
		t.Fatalf("AddURLsBatch: %v", err)
	}
	if result.Accepted != 1 {
		t.Fatalf("expected 1 accepted after in-batch dedup, got %d", result.Accepted)
	}
}

func TestAddRejectsAlreadySeen(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if _, err := m.AddURLsBatch(ctx, []string{"http://a.com/"}, 0, true); err != nil {
		t.Fatalf("AddURLsBatch (first): %v", err)
	}
	result, err := m.AddURLsBatch(ctx, []string{"http://a.com/"}, 0, true)
	if err != nil {
		t.Fatalf("AddURLsBatch (second): %v", err)
	}
	if result.Accepted != 0 {
		t.Fatalf("expected 0 accepted on re-add, got %d", result.Accepted)
	}
	if result.Outcomes["http://a.com/"] != RejectedBySeen {
		t.Fatalf("expected RejectedBySeen, got %v", result.Outcomes["http://a.com/"])
	}
}

func TestAddRejectsDisallowedByPoliteness(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	m.politeness.(*allowAllPoliteness).disallow["http://a.com/private"] = true

	result, err := m.AddURLsBatch(ctx, []string{"http://a.com/private"}, 0, true)
	if err != nil {
		t.Fatalf("AddURLsBatch: %v", err)
	}
	if result.Accepted != 0 {
		t.Fatalf("expected 0 accepted, got %d", result.Accepted)
	}
	if result.Outcomes["http://a.com/private"] != RejectedByPoliteness {
		t.Fatalf("expected RejectedByPoliteness, got %v", result.Outcomes["http://a.com/private"])
	}
}

func TestDifferentDomainsBothServedImmediately(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if _, err := m.AddURLsBatch(ctx, []string{"http://a.com/", "http://b.com/"}, 0, true); err != nil {
		t.Fatalf("AddURLsBatch: %v", err)
	}

	seenDomains := make(map[string]bool)
	for i := 0; i < 2; i++ {
		claimed, err := m.GetNextURL(ctx)
		if err != nil {
			t.Fatalf("GetNextURL: %v", err)
		}
		if claimed == nil {
			t.Fatalf("expected a claim on iteration %d", i)
		}
		seenDomains[claimed.Domain] = true
	}
	if !seenDomains["a.com"] || !seenDomains["b.com"] {
		t.Fatalf("expected both domains served, got %v", seenDomains)
	}
}

// TestSeededOnlyAcceptsOwnSeedsOnColdStore drives AddURLsBatch end to
// end, with the real politeness Enforcer in seeded_urls_only mode,
// against a store that has never seen these domains before. A seeded
// batch must mark its own domains seeded before the politeness filter
// runs, or seeded_urls_only rejects every URL on first touch —
// including the crawl's own seeds.
func TestSeededOnlyAcceptsOwnSeedsOnColdStore(t *testing.T) {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "frontier-seeded-only-")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store := frontierstore.New(frontierstore.NewMemRedisClient(), dir)
	enforcer, err := politeness.New(store, "TestCrawler/1.0", time.Second, 200*time.Millisecond, true, nil)
	if err != nil {
		t.Fatalf("politeness.New: %v", err)
	}
	seen := seenset.NewLocalBloomSeenSet()
	m := New(store, enforcer, seen, nil)

	result, err := m.AddURLsBatch(ctx, []string{"http://seed-a.invalid/", "http://seed-b.invalid/"}, 0, true)
	if err != nil {
		t.Fatalf("AddURLsBatch: %v", err)
	}
	if result.Accepted != 2 {
		t.Fatalf("expected both cold-start seed URLs accepted under seeded_urls_only, got %d (outcomes: %+v)", result.Accepted, result.Outcomes)
	}
}
