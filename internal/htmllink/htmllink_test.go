package htmllink

import (
	"reflect"
	"testing"
)

func TestExtractLinksAndTitle(t *testing.T) {
	doc := `<html><head><title>Example Page</title></head>
<body>
<a href="/about">About</a>
<a href="https://other.com/x?utm_source=foo&keep=1">Other</a>
<a href="#section">Anchor only</a>
<a href="javascript:void(0)">JS</a>
<link rel="canonical" href="/about">
</body></html>`

	result, err := Extract(doc, "https://example.com/start")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Title != "Example Page" {
		t.Fatalf("Title = %q, want Example Page", result.Title)
	}

	want := []string{
		"https://example.com/about",
		"https://other.com/x?keep=1",
	}
	if !reflect.DeepEqual(result.Links, want) {
		t.Fatalf("Links = %v, want %v", result.Links, want)
	}
}

func TestExtractSkipsDuplicateLinks(t *testing.T) {
	doc := `<a href="/a">1</a><a href="/a">2</a>`
	result, err := Extract(doc, "https://example.com/")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Links) != 1 {
		t.Fatalf("expected 1 deduped link, got %d: %v", len(result.Links), result.Links)
	}
}

func TestExtractSitemapURLs(t *testing.T) {
	xml := `<?xml version="1.0"?><urlset><url><loc>https://example.com/a</loc></url><url><loc>https://example.com/b</loc></url></urlset>`
	urls := ExtractSitemapURLs(xml)
	want := []string{"https://example.com/a", "https://example.com/b"}
	if !reflect.DeepEqual(urls, want) {
		t.Fatalf("ExtractSitemapURLs = %v, want %v", urls, want)
	}
}
