// Package contentstore is the concrete collaborator behind the
// content-persistence contract (§1: "an external collaborator,
// contract-only here"): a JSONL archive of page records plus a
// visited-page record keyed `visited:{url_hash}` in Redis, with an
// optional SQLite secondary index for page/link queries (SPEC_FULL.md
// Part D.3). Records hold page metadata (URL, status, content type,
// title, link count, depth, crawl time, error); page bodies are not
// stored.
//
// Grounded on the teacher's internal/storage/storage.go (the JSONL
// archive shape, directory/file setup) and internal/storage/sqlite.go
// (its page/link schema), re-pointed at Redis visited records
// instead of the teacher's flat in-process result list.
package contentstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/politeweb/crawler/internal/fetchpool"
)

// VisitedPage is the durable record of one crawl outcome, the value
// stored at `visited:{url_hash}` (hash field set, per frontierstore's
// hash-of-fields convention) and appended to the JSONL page archive.
type VisitedPage struct {
	URL         string    `json:"url"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Title       string    `json:"title"`
	LinkCount   int       `json:"link_count"`
	Depth       int       `json:"depth"`
	CrawledAt   time.Time `json:"crawled_at"`
	Error       string    `json:"error,omitempty"`
}

// RedisClient is the narrow Redis capability contentstore needs for
// the visited-page index.
type RedisClient interface {
	HSet(ctx context.Context, key string, values map[string]string) error
	Exists(ctx context.Context, keys ...string) (int64, error)
}

// URLHash returns the hex-encoded SHA-1 of rawURL, the key suffix used
// by every `visited:{url_hash}` record.
func URLHash(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// Store is the contentstore's concrete implementation: a Redis
// visited-page index, an append-only JSONL archive of page records
// (no page bodies), and an optional SQLite page/link index.
type Store struct {
	redis RedisClient

	mu    sync.Mutex
	jsonl *os.File

	sqlite *sqliteIndex // nil unless EnableSQLiteIndex
}

// New opens (creating if necessary) the JSONL archive under dataDir
// and wires it to redis for the visited-page index. If sqlitePath is
// non-empty, a secondary SQLite index is also opened.
func New(redis RedisClient, dataDir, sqlitePath string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("contentstore: create data dir: %w", err)
	}

	jsonlPath := filepath.Join(dataDir, "pages.jsonl")
	file, err := os.OpenFile(jsonlPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("contentstore: open jsonl archive: %w", err)
	}

	s := &Store{redis: redis, jsonl: file}

	if sqlitePath != "" {
		idx, err := newSQLiteIndex(sqlitePath)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("contentstore: open sqlite index: %w", err)
		}
		s.sqlite = idx
	}

	return s, nil
}

// RecordVisited persists a fetchpool.VisitedRecord — fetchpool's
// non-HTML/error outcomes — satisfying fetchpool.VisitedRecorder.
func (s *Store) RecordVisited(ctx context.Context, rec fetchpool.VisitedRecord) error {
	return s.SavePage(ctx, VisitedPage{
		URL:         rec.URL,
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Error:       rec.Err,
		CrawledAt:   time.Now().UTC(),
	})
}

// SavePage writes page to the JSONL archive, the Redis visited-page
// index, and the SQLite index if enabled.
func (s *Store) SavePage(ctx context.Context, page VisitedPage) error {
	if page.CrawledAt.IsZero() {
		page.CrawledAt = time.Now().UTC()
	}

	if err := s.appendJSONL(page); err != nil {
		return err
	}

	if s.redis != nil {
		key := "visited:" + URLHash(page.URL)
		fields := map[string]string{
			"url":          page.URL,
			"status_code":  fmt.Sprintf("%d", page.StatusCode),
			"content_type": page.ContentType,
			"title":        page.Title,
			"depth":        fmt.Sprintf("%d", page.Depth),
			"crawled_at":   page.CrawledAt.Format(time.RFC3339),
		}
		if page.Error != "" {
			fields["error"] = page.Error
		}
		if err := s.redis.HSet(ctx, key, fields); err != nil {
			return fmt.Errorf("contentstore: hset visited record: %w", err)
		}
	}

	if s.sqlite != nil {
		if err := s.sqlite.savePage(page); err != nil {
			return fmt.Errorf("contentstore: sqlite save page: %w", err)
		}
	}

	return nil
}

// SaveLinks records the outbound links discovered on sourceURL, when
// the SQLite index is enabled. A no-op otherwise.
func (s *Store) SaveLinks(sourceURL string, targets []string) error {
	if s.sqlite == nil {
		return nil
	}
	return s.sqlite.saveLinks(sourceURL, targets)
}

// IsVisited reports whether rawURL already has a visited-page record.
func (s *Store) IsVisited(ctx context.Context, rawURL string) (bool, error) {
	if s.redis == nil {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, "visited:"+URLHash(rawURL))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) appendJSONL(page VisitedPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("contentstore: marshal page: %w", err)
	}
	if _, err := s.jsonl.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("contentstore: append jsonl: %w", err)
	}
	return nil
}

// LoadPages reads every record from the JSONL archive, used by
// internal/export to build the sitemap.
func (s *Store) LoadPages(dataDir string) ([]VisitedPage, error) {
	jsonlPath := filepath.Join(dataDir, "pages.jsonl")
	data, err := os.ReadFile(jsonlPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("contentstore: read jsonl archive: %w", err)
	}

	var pages []VisitedPage
	var line []byte
	flush := func() {
		if len(line) == 0 {
			return
		}
		var page VisitedPage
		if err := json.Unmarshal(line, &page); err == nil {
			pages = append(pages, page)
		}
		line = line[:0]
	}
	for _, b := range data {
		if b == '\n' {
			flush()
			continue
		}
		line = append(line, b)
	}
	flush()

	return pages, nil
}

// Close releases the JSONL archive and SQLite index, if open.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.jsonl != nil {
		if err := s.jsonl.Close(); err != nil {
			firstErr = err
		}
	}
	if s.sqlite != nil {
		if err := s.sqlite.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
