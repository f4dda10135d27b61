// Package frontierstore implements the persistence half of §3/§4.1:
// Redis-backed domain metadata and the domain ready queue, plus the
// append-only per-domain frontier files on the local filesystem. The
// frontier manager (internal/frontier) builds the add/get semantics
// on top of this package; this package only owns storage primitives.
package frontierstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const readyQueueKey = "domains:queue"
const inQueueSetKey = "domains:in_queue"

// Store ties the Redis metadata/queue layer to the filesystem
// frontier files.
type Store struct {
	redis   RedisClient
	files   *FileStore
	dataDir string
}

// New builds a Store.
func New(redis RedisClient, dataDir string) *Store {
	return &Store{
		redis:   redis,
		files:   NewFileStore(dataDir),
		dataDir: dataDir,
	}
}

// EnsureDomain returns the metadata for domain, lazily creating it
// (and detecting/repairing post-crash skew) on first touch.
//
// Skew handling implements SPEC_FULL.md Open Question decision 3: if
// a frontier file exists on disk but Redis has no metadata hash for
// the domain, the domain starts fresh — the orphaned file is
// truncated rather than trusted.
func (s *Store) EnsureDomain(ctx context.Context, domain string, seeded bool) (DomainMeta, error) {
	meta, exists, err := s.GetDomainMeta(ctx, domain)
	if err != nil {
		return DomainMeta{}, err
	}
	if exists {
		return meta, nil
	}

	relPath := RelativePath(domain)
	absPath := filepath.Join(s.dataDir, relPath)

	if fileExistsNonEmpty(absPath) {
		if err := s.files.Truncate(domain, relPath); err != nil {
			return DomainMeta{}, fmt.Errorf("frontierstore: repair skewed domain %q: %w", domain, err)
		}
	}

	if err := s.initDomainMeta(ctx, domain, relPath, seeded); err != nil {
		return DomainMeta{}, err
	}

	return DomainMeta{FilePath: relPath, IsSeeded: seeded}, nil
}

func fileExistsNonEmpty(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// AppendEntry writes one frontier-file line for domain, incrementing
// frontier_size, and returns the new total size.
func (s *Store) AppendEntry(ctx context.Context, domain, relPath string, entry Entry) (int64, error) {
	if _, err := s.files.Append(domain, relPath, entry.Serialize()); err != nil {
		return 0, err
	}
	return s.IncrFrontierSize(ctx, domain, 1)
}

// ReadEntryAt reads and parses the frontier-file line at idx for
// domain. A read/parse failure is surfaced to the caller, which
// (per §4.1 Failure policy) should advance past the line anyway and
// continue rather than stall the domain.
func (s *Store) ReadEntryAt(domain, relPath string, idx int64) (Entry, error) {
	line, err := s.files.ReadLine(domain, relPath, idx)
	if err != nil {
		return Entry{}, err
	}
	return ParseEntry(line)
}

// MarkQueued pushes domain to the tail of the ready queue if it is not
// already present there, per §4.1 step 5. Returns whether a push
// happened.
func (s *Store) MarkQueued(ctx context.Context, domain string) (bool, error) {
	already, err := s.redis.SIsMember(ctx, inQueueSetKey, domain)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}
	if err := s.redis.SAdd(ctx, inQueueSetKey, domain); err != nil {
		return false, err
	}
	if err := s.redis.RPush(ctx, readyQueueKey, domain); err != nil {
		return false, err
	}
	return true, nil
}

// ClaimDomain pops the next domain from the ready queue (§4.1
// consumption path step 1). ok is false when the queue is empty.
func (s *Store) ClaimDomain(ctx context.Context) (domain string, ok bool, err error) {
	val, err := s.redis.LPop(ctx, readyQueueKey)
	if err != nil {
		if err == ErrNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	// The domain is no longer "in the ready queue"; it is held by
	// whichever worker just claimed it.
	_ = s.redis.SRem(ctx, inQueueSetKey, val)
	return val, true, nil
}

// RequeueDomain pushes domain back to the tail unconditionally — used
// both when politeness defers a claimed domain and when a worker is
// done with a domain that still has unconsumed URLs.
func (s *Store) RequeueDomain(ctx context.Context, domain string) error {
	if err := s.redis.SAdd(ctx, inQueueSetKey, domain); err != nil {
		return err
	}
	return s.redis.RPush(ctx, readyQueueKey, domain)
}

// Close releases the underlying Redis connection and file handles.
func (s *Store) Close() error {
	fileErr := s.files.Close()
	redisErr := s.redis.Close()
	if fileErr != nil {
		return fileErr
	}
	return redisErr
}
