package contentstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteIndex is the optional secondary page/link index, grounded on
// the teacher's internal/storage/sqlite.go schema (pages, links
// tables) trimmed to what this crawler actually produces — no
// meta_tags/structured_data tables, since this scope never extracts
// either.
type sqliteIndex struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT UNIQUE NOT NULL,
	depth INTEGER NOT NULL,
	status_code INTEGER,
	content_type TEXT,
	title TEXT,
	crawled_at TIMESTAMP,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_pages_status_code ON pages(status_code);
CREATE INDEX IF NOT EXISTS idx_pages_crawled_at ON pages(crawled_at);
CREATE INDEX IF NOT EXISTS idx_pages_depth ON pages(depth);

CREATE TABLE IF NOT EXISTS links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_url TEXT NOT NULL,
	target_url TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_links_source_url ON links(source_url);
CREATE INDEX IF NOT EXISTS idx_links_target_url ON links(target_url);
`

func newSQLiteIndex(dbPath string) (*sqliteIndex, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("contentstore: open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("contentstore: create schema: %w", err)
	}
	return &sqliteIndex{db: db}, nil
}

func (s *sqliteIndex) savePage(page VisitedPage) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO pages
		(url, depth, status_code, content_type, title, crawled_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, page.URL, page.Depth, page.StatusCode, page.ContentType, page.Title, page.CrawledAt, page.Error)
	return err
}

func (s *sqliteIndex) saveLinks(sourceURL string, targets []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO links (source_url, target_url) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, target := range targets {
		if _, err := stmt.Exec(sourceURL, target); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Stats mirrors the teacher's GetStats, trimmed to the columns this
// schema actually has.
func (s *sqliteIndex) stats() (map[string]int64, error) {
	stats := make(map[string]int64)

	var total int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&total); err != nil {
		return nil, err
	}
	stats["total_pages"] = total

	var successful int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM pages WHERE status_code = 200").Scan(&successful); err != nil {
		return nil, err
	}
	stats["successful_pages"] = successful

	return stats, nil
}

func (s *sqliteIndex) close() error {
	return s.db.Close()
}
