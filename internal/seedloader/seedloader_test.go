package seedloader

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/politeweb/crawler/internal/httpclient"
)

func TestLoadSeedFileSkipsBlankAndCommentLines(t *testing.T) {
	input := "https://a.example/\n# comment\n\nhttps://b.example/\n"
	seeds := LoadSeedFile(bufio.NewScanner(strings.NewReader(input)))
	want := []string{"https://a.example/", "https://b.example/"}
	if !reflect.DeepEqual(seeds, want) {
		t.Fatalf("LoadSeedFile = %v, want %v", seeds, want)
	}
}

func TestExpandSitemapsDiscoversURLs(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><urlset><url><loc>` + srv.URL + `/a</loc></url><url><loc>` + srv.URL + `/b</loc></url></urlset>`))
	})
	mux.HandleFunc("/sitemap_index.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/sitemap-index.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow:\n"))
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	client := httpclient.New(httpclient.Options{
		UserAgent:    "TestCrawler/1.0",
		FetchTimeout: 5 * time.Second,
		MaxRedirects: 5,
		MaxBodyBytes: 1 << 20,
	})
	loader := New(client, nil, 100)

	expanded := loader.discoverFromSitemap(context.Background(), srv.URL+"/")
	found := map[string]bool{}
	for _, u := range expanded {
		found[u] = true
	}
	if !found[srv.URL+"/a"] || !found[srv.URL+"/b"] {
		t.Fatalf("expected /a and /b discovered from sitemap.xml, got %v", expanded)
	}
}
