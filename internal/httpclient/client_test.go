package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(maxRedirects int, maxBodyBytes int64) *Client {
	return New(Options{
		UserAgent:    "TestCrawler/1.0",
		FetchTimeout: 5 * time.Second,
		MaxRedirects: maxRedirects,
		MaxBodyBytes: maxBodyBytes,
		MaxRetries:   0,
	})
}

func TestFetchBasic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer srv.Close()

	c := newTestClient(10, 1<<20)
	res, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, want 200", res.StatusCode)
	}
	if !strings.Contains(string(res.Body), "hi") {
		t.Fatalf("unexpected body: %q", res.Body)
	}
	if res.IsRedirect {
		t.Fatalf("expected IsRedirect=false for a direct fetch")
	}
}

func TestFetchTruncatesOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 1000)))
	}))
	defer srv.Close()

	c := newTestClient(10, 100)
	res, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Body) != 100 {
		t.Fatalf("Body length = %d, want 100", len(res.Body))
	}
}

func TestFetchFollowsRedirect(t *testing.T) {
	var targetURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, targetURL+"/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("final"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	targetURL = srv.URL

	c := newTestClient(10, 1<<20)
	res, err := c.Fetch(context.Background(), srv.URL+"/start")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res.IsRedirect {
		t.Fatalf("expected IsRedirect=true")
	}
	if !strings.HasSuffix(res.FinalURL, "/end") {
		t.Fatalf("FinalURL = %q, want suffix /end", res.FinalURL)
	}
}

func TestFetchRetriesOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(Options{
		UserAgent:    "TestCrawler/1.0",
		FetchTimeout: 5 * time.Second,
		MaxRedirects: 10,
		MaxBodyBytes: 1 << 20,
		MaxRetries:   2,
	})

	res, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, want 200 after retry", res.StatusCode)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}
