package politeness

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/politeweb/crawler/internal/frontierstore"
)

func newTestEnforcer(t *testing.T, minDelay time.Duration, seededOnly bool) (*Enforcer, *frontierstore.Store) {
	t.Helper()
	dir, err := os.MkdirTemp("", "politeness-test-")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store := frontierstore.New(frontierstore.NewMemRedisClient(), dir)
	e, err := New(store, "TestCrawler/1.0 (+mailto:ops@example.com)", minDelay, 2*time.Second, seededOnly, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, store
}

func TestSimplifyAgentStripsParens(t *testing.T) {
	got := simplifyAgent("TestCrawler/1.0 (+mailto:ops@example.com)")
	if got != "TestCrawler" {
		t.Fatalf("simplifyAgent = %q, want TestCrawler", got)
	}
}

func TestCanFetchDomainNowDefaultsTrue(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEnforcer(t, time.Second, false)

	ok, err := e.CanFetchDomainNow(ctx, "example.com")
	if err != nil {
		t.Fatalf("CanFetchDomainNow: %v", err)
	}
	if !ok {
		t.Fatalf("expected true for a domain with no recorded fetch yet")
	}
}

func TestRecordFetchAttemptDelaysNextFetch(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEnforcer(t, 70*time.Second, false)

	if err := store.SetRobots(ctx, "example.com", "", time.Now().Add(time.Hour).Unix()); err != nil {
		t.Fatalf("SetRobots: %v", err)
	}

	if err := e.RecordDomainFetchAttempt(ctx, "example.com"); err != nil {
		t.Fatalf("RecordDomainFetchAttempt: %v", err)
	}

	ok, err := e.CanFetchDomainNow(ctx, "example.com")
	if err != nil {
		t.Fatalf("CanFetchDomainNow: %v", err)
	}
	if ok {
		t.Fatalf("expected domain to be in its crawl-delay window")
	}
}

func TestManualExclusionBlocksURL(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEnforcer(t, time.Second, false)

	if _, err := store.EnsureDomain(ctx, "badsite.com", false); err != nil {
		t.Fatalf("EnsureDomain: %v", err)
	}
	if err := store.MarkExcluded(ctx, "badsite.com"); err != nil {
		t.Fatalf("MarkExcluded: %v", err)
	}

	allowed, err := e.IsURLAllowed(ctx, "http://badsite.com/x")
	if err != nil {
		t.Fatalf("IsURLAllowed: %v", err)
	}
	if allowed {
		t.Fatalf("expected excluded domain to be disallowed")
	}
}

func TestSeededOnlyModeExcludesUnseeded(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEnforcer(t, time.Second, true)

	if _, err := store.EnsureDomain(ctx, "seeded.com", true); err != nil {
		t.Fatalf("EnsureDomain: %v", err)
	}
	if _, err := store.EnsureDomain(ctx, "discovered.com", false); err != nil {
		t.Fatalf("EnsureDomain: %v", err)
	}

	seededAllowed, err := e.isExcluded(ctx, "seeded.com")
	if err != nil {
		t.Fatalf("isExcluded(seeded.com): %v", err)
	}
	if seededAllowed {
		t.Fatalf("seeded domain should not be excluded in seeded-only mode")
	}

	discoveredExcluded, err := e.isExcluded(ctx, "discovered.com")
	if err != nil {
		t.Fatalf("isExcluded(discovered.com): %v", err)
	}
	if !discoveredExcluded {
		t.Fatalf("non-seeded domain should be excluded in seeded-only mode")
	}
}

func TestRobotsDisallowRespected(t *testing.T) {
	robotsBody := "User-agent: TestCrawler\nDisallow: /private\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte(robotsBody))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ctx := context.Background()
	e, _ := newTestEnforcer(t, time.Second, false)

	// Route every outbound dial to the httptest server regardless of
	// target host, so a plain domain name (rather than an IP:port,
	// which the real eTLD+1 extraction would collapse to a bare IP)
	// can be exercised through the Enforcer's normal code path.
	e.httpClient = &http.Client{
		Timeout: 2 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return net.Dial(network, srv.Listener.Addr().String())
			},
		},
	}

	allowedPublic, err := e.IsURLAllowed(ctx, "http://robots-test.example/public")
	if err != nil {
		t.Fatalf("IsURLAllowed(/public): %v", err)
	}
	if !allowedPublic {
		t.Fatalf("expected /public allowed")
	}

	allowedPrivate, err := e.IsURLAllowed(ctx, "http://robots-test.example/private")
	if err != nil {
		t.Fatalf("IsURLAllowed(/private): %v", err)
	}
	if allowedPrivate {
		t.Fatalf("expected /private disallowed")
	}
}
