package frontierstore

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// maxLineBytes guards against an unbounded read if a frontier file is
// corrupted and never produces a newline.
const maxLineBytes = 1 << 20 // 1 MiB

// fileHandle owns one domain's append-only frontier file plus the
// in-memory byte-offset index that makes "seek to line N" (§4.1
// consumption path step 3) an O(1) operation instead of a full
// rescan on every read.
type fileHandle struct {
	mu          sync.Mutex
	f           *os.File
	lineOffsets []int64 // lineOffsets[i] = byte offset where line i starts
	size        int64   // current file size in bytes, tracked to avoid a Seek before every append
}

// FileStore manages the on-disk half of the frontier: one append-only
// file per domain, laid out under `{dataDir}/frontiers/{2-char-hash}/`
// for filesystem scalability, per spec §6.
type FileStore struct {
	dataDir string

	mu      sync.Mutex
	handles map[string]*fileHandle
}

// NewFileStore creates a FileStore rooted at dataDir.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{
		dataDir: dataDir,
		handles: make(map[string]*fileHandle),
	}
}

// RelativePath returns the path (relative to dataDir) that a domain's
// frontier file lives at, matching the `file_path` metadata field.
func RelativePath(domain string) string {
	sum := sha1.Sum([]byte(domain))
	prefix := hex.EncodeToString(sum[:1]) // 2 hex chars -> 256 subdirectories
	return filepath.Join("frontiers", prefix, domain+".frontier")
}

func (fs *FileStore) absPath(relPath string) string {
	return filepath.Join(fs.dataDir, relPath)
}

// handleFor returns (creating if necessary) the fileHandle for
// domain, opening the file and rebuilding its line-offset index by
// scanning once if the file already has content (e.g. after a resume).
func (fs *FileStore) handleFor(domain, relPath string) (*fileHandle, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if h, ok := fs.handles[domain]; ok {
		return h, nil
	}

	absPath := fs.absPath(relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("frontierstore: create frontier dir: %w", err)
	}

	f, err := os.OpenFile(absPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("frontierstore: open frontier file: %w", err)
	}

	h := &fileHandle{f: f}
	if err := h.rebuildIndex(); err != nil {
		f.Close()
		return nil, err
	}

	fs.handles[domain] = h
	return h, nil
}

// rebuildIndex scans the file once from the start, recording the byte
// offset of every line. Called only when a handle is first opened.
func (h *fileHandle) rebuildIndex() error {
	if _, err := h.f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReaderSize(h.f, 64*1024)
	var offset int64
	h.lineOffsets = h.lineOffsets[:0]

	for {
		lineStart := offset
		line, err := reader.ReadString('\n')
		offset += int64(len(line))
		if len(line) > 0 {
			h.lineOffsets = append(h.lineOffsets, lineStart)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("frontierstore: rebuild index: %w", err)
		}
	}

	h.size = offset
	if _, err := h.f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	return nil
}

// Append writes one frontier-file line for domain and returns the
// 0-based line index it was written at.
func (fs *FileStore) Append(domain, relPath, line string) (int64, error) {
	h, err := fs.handleFor(domain, relPath)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	idx := int64(len(h.lineOffsets))
	payload := line + "\n"

	if _, err := h.f.WriteAt([]byte(payload), h.size); err != nil {
		return 0, fmt.Errorf("frontierstore: append frontier line: %w", err)
	}

	h.lineOffsets = append(h.lineOffsets, h.size)
	h.size += int64(len(payload))

	return idx, nil
}

// ReadLine reads the line at 0-based index idx from domain's frontier
// file.
func (fs *FileStore) ReadLine(domain, relPath string, idx int64) (string, error) {
	h, err := fs.handleFor(domain, relPath)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if idx < 0 || idx >= int64(len(h.lineOffsets)) {
		return "", fmt.Errorf("frontierstore: line %d out of range (have %d)", idx, len(h.lineOffsets))
	}

	start := h.lineOffsets[idx]
	buf := make([]byte, maxLineBytes)
	n, err := h.f.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("frontierstore: read line %d: %w", idx, err)
	}

	chunk := buf[:n]
	nl := indexByte(chunk, '\n')
	if nl < 0 {
		return string(chunk), nil
	}
	return string(chunk[:nl]), nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// Truncate discards a domain's frontier file entirely, used when
// post-crash skew (file present, metadata missing) means the domain
// should start fresh.
func (fs *FileStore) Truncate(domain, relPath string) error {
	fs.mu.Lock()
	if h, ok := fs.handles[domain]; ok {
		h.f.Close()
		delete(fs.handles, domain)
	}
	fs.mu.Unlock()

	return os.Truncate(fs.absPath(relPath), 0)
}

// Close closes every open file handle.
func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var firstErr error
	for domain, h := range fs.handles {
		if err := h.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(fs.handles, domain)
	}
	return firstErr
}
