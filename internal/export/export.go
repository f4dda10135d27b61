// Package export writes crawl results to an XML sitemap
// (SPEC_FULL.md Part D.2), kept from the teacher's
// internal/export/export.go and sitemap.go almost verbatim in
// purpose, re-pointed at internal/contentstore's JSONL archive
// instead of the teacher's own flat-file storage package.
package export

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/politeweb/crawler/internal/contentstore"
)

// Config mirrors the teacher's SitemapConfig.
type Config struct {
	DataDir           string
	OutputFile        string
	IncludeLastmod    bool
	IncludeChangefreq bool
	DefaultPriority   float64
}

// urlSet is the sitemaps.org XML shape, unchanged from the teacher.
type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	XMLNS   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc        string  `xml:"loc"`
	Lastmod    string  `xml:"lastmod,omitempty"`
	Changefreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority,omitempty"`
}

// ExportSitemap loads every visited page from the content store's
// JSONL archive and writes the successfully-crawled (status 200)
// subset to an XML sitemap at config.OutputFile, returning the URL
// count written.
func ExportSitemap(config Config) (int, error) {
	store := &contentstore.Store{}
	pages, err := store.LoadPages(config.DataDir)
	if err != nil {
		return 0, fmt.Errorf("export: load pages: %w", err)
	}

	set := urlSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
	}

	for _, page := range pages {
		if page.StatusCode != 200 {
			continue
		}

		entry := urlEntry{Loc: page.URL, Priority: config.DefaultPriority}
		if config.IncludeLastmod {
			entry.Lastmod = page.CrawledAt.Format(time.RFC3339)
		}
		if config.IncludeChangefreq {
			entry.Changefreq = "weekly"
		}
		set.URLs = append(set.URLs, entry)
	}

	output, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("export: marshal sitemap xml: %w", err)
	}

	content := []byte(xml.Header + string(output))
	if err := os.WriteFile(config.OutputFile, content, 0644); err != nil {
		return 0, fmt.Errorf("export: write sitemap: %w", err)
	}

	return len(set.URLs), nil
}
