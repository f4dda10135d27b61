package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/politeweb/crawler/internal/contentstore"
)

func TestExportSitemapWritesOnlySuccessfulPages(t *testing.T) {
	dir := t.TempDir()
	store, err := contentstore.New(nil, dir, "")
	if err != nil {
		t.Fatalf("contentstore.New: %v", err)
	}

	ctx := context.Background()
	if err := store.SavePage(ctx, contentstore.VisitedPage{URL: "https://example.com/ok", StatusCode: 200, CrawledAt: time.Now().UTC()}); err != nil {
		t.Fatalf("SavePage ok: %v", err)
	}
	if err := store.SavePage(ctx, contentstore.VisitedPage{URL: "https://example.com/broken", StatusCode: 500, CrawledAt: time.Now().UTC()}); err != nil {
		t.Fatalf("SavePage broken: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	outputFile := filepath.Join(dir, "sitemap.xml")
	count, err := ExportSitemap(Config{
		DataDir:           dir,
		OutputFile:        outputFile,
		IncludeLastmod:    true,
		IncludeChangefreq: true,
		DefaultPriority:   0.8,
	})
	if err != nil {
		t.Fatalf("ExportSitemap: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "https://example.com/ok") {
		t.Fatalf("sitemap missing expected URL: %s", data)
	}
	if strings.Contains(string(data), "https://example.com/broken") {
		t.Fatalf("sitemap should not contain failed page: %s", data)
	}
}
