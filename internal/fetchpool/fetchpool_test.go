package fetchpool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/politeweb/crawler/internal/frontier"
	"github.com/politeweb/crawler/internal/httpclient"
)

// fakeFrontier yields the given URLs once each, then forever returns
// nil (an empty frontier), simulating GetNextURL's claim-then-starve
// behavior closely enough for the pool's idle-shutdown logic to fire.
type fakeFrontier struct {
	mu   sync.Mutex
	urls []*frontier.ClaimedURL
}

func (f *fakeFrontier) GetNextURL(ctx context.Context) (*frontier.ClaimedURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.urls) == 0 {
		return nil, nil
	}
	next := f.urls[0]
	f.urls = f.urls[1:]
	return next, nil
}

type fakeQueue struct {
	mu    sync.Mutex
	items []string
}

func (q *fakeQueue) RPush(ctx context.Context, key string, values ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, values...)
	return nil
}

type fakeVisited struct {
	mu      sync.Mutex
	records []VisitedRecord
}

func (v *fakeVisited) RecordVisited(ctx context.Context, rec VisitedRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = append(v.records, rec)
	return nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	fetched  int
	html     int
	errKinds []string
}

func (m *fakeMetrics) IncrFetched() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched++
}
func (m *fakeMetrics) IncrHTML() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.html++
}
func (m *fakeMetrics) IncrError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errKinds = append(m.errKinds, kind)
}

func newTestHTTPClient() *httpclient.Client {
	return httpclient.New(httpclient.Options{
		UserAgent:    "TestCrawler/1.0",
		FetchTimeout: 5 * time.Second,
		MaxRedirects: 10,
		MaxBodyBytes: 1 << 20,
		MaxRetries:   0,
	})
}

func TestPoolPushesHTMLToQueue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer srv.Close()

	fr := &fakeFrontier{urls: []*frontier.ClaimedURL{{URL: srv.URL, Domain: "example.com", Depth: 0}}}
	queue := &fakeQueue{}
	visited := &fakeVisited{}
	metrics := &fakeMetrics{}

	pool := New(fr, newTestHTTPClient(), queue, visited, metrics, nil, Options{
		NumWorkers:   1,
		PollInterval: 10 * time.Millisecond,
		IdleTimeout:  80 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pool.Run(ctx)

	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.items) != 1 {
		t.Fatalf("queue items = %d, want 1", len(queue.items))
	}
	var item FetchQueueItem
	if err := json.Unmarshal([]byte(queue.items[0]), &item); err != nil {
		t.Fatalf("unmarshal queue item: %v", err)
	}
	if item.Domain != "example.com" || item.StatusCode != 200 {
		t.Fatalf("unexpected item: %+v", item)
	}
	if metrics.html != 1 {
		t.Fatalf("html metric = %d, want 1", metrics.html)
	}
}

func TestPoolRecordsNonHTMLAsVisited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	fr := &fakeFrontier{urls: []*frontier.ClaimedURL{{URL: srv.URL, Domain: "example.com", Depth: 0}}}
	queue := &fakeQueue{}
	visited := &fakeVisited{}
	metrics := &fakeMetrics{}

	pool := New(fr, newTestHTTPClient(), queue, visited, metrics, nil, Options{
		NumWorkers:   1,
		PollInterval: 10 * time.Millisecond,
		IdleTimeout:  80 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pool.Run(ctx)

	if len(queue.items) != 0 {
		t.Fatalf("expected no queue items for non-HTML, got %d", len(queue.items))
	}
	visited.mu.Lock()
	defer visited.mu.Unlock()
	if len(visited.records) != 1 || visited.records[0].ContentType != "application/pdf" {
		t.Fatalf("unexpected visited records: %+v", visited.records)
	}
	for _, k := range metrics.errKinds {
		if k == "non_html" {
			return
		}
	}
	t.Fatalf("expected a non_html error kind, got %v", metrics.errKinds)
}

func TestPoolRecordsFetchErrorAsVisited(t *testing.T) {
	fr := &fakeFrontier{urls: []*frontier.ClaimedURL{{URL: "http://127.0.0.1:1", Domain: "example.com", Depth: 0}}}
	queue := &fakeQueue{}
	visited := &fakeVisited{}
	metrics := &fakeMetrics{}

	pool := New(fr, newTestHTTPClient(), queue, visited, metrics, nil, Options{
		NumWorkers:   1,
		PollInterval: 10 * time.Millisecond,
		IdleTimeout:  80 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pool.Run(ctx)

	visited.mu.Lock()
	defer visited.mu.Unlock()
	if len(visited.records) != 1 || visited.records[0].Err == "" {
		t.Fatalf("expected one visited record with an error, got %+v", visited.records)
	}
}

func TestPoolRecordsMalformedURLAndKeepsRunning(t *testing.T) {
	// A claimed URL that cannot be parsed makes the fetch fail inside
	// doFetch as an ordinary error (not a panic). The pool must record
	// that failure and keep running until it idle-shuts-down cleanly.
	fr := &fakeFrontier{urls: []*frontier.ClaimedURL{{URL: "://bad-url", Domain: "example.com", Depth: 0}}}
	queue := &fakeQueue{}
	visited := &fakeVisited{}
	metrics := &fakeMetrics{}

	pool := New(fr, newTestHTTPClient(), queue, visited, metrics, nil, Options{
		NumWorkers:   1,
		PollInterval: 10 * time.Millisecond,
		IdleTimeout:  80 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pool.Run(ctx)

	visited.mu.Lock()
	defer visited.mu.Unlock()
	if len(visited.records) != 1 {
		t.Fatalf("expected pool to record the malformed-URL fetch failure and keep running, got %+v", visited.records)
	}
}
