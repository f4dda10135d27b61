// Package seenset implements the "URL has been seen" membership test
// of spec §3: a Redis-resident bloom filter (`seen:bloom`) sized for
// ~10M items at a 0.1% false-positive rate, reserved lazily on first
// use.
//
// Membership is advisory: Contains reporting true suppresses
// insertion; Contains reporting false permits it. False positives are
// tolerated per spec (a URL is silently dropped); false negatives must
// never occur, so every add path calls Add before it writes anything
// durable downstream (§4.1 step 3).
package seenset

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	redisbloom "github.com/RedisBloom/redisbloom-go"
)

const (
	bloomKey          = "seen:bloom"
	expectedItems     = 10_000_000
	falsePositiveRate = 0.001
)

// SeenSet is the membership-test contract the frontier manager
// consults before accepting a URL.
type SeenSet interface {
	// Contains reports whether url has possibly been seen before.
	Contains(ctx context.Context, url string) (bool, error)
	// Add records url as seen. Safe to call even if url was already
	// present; RedisBloom's BF.ADD and bits-and-blooms' Add are both
	// idempotent in effect.
	Add(ctx context.Context, url string) error
	// Reset clears the filter. Used on a fresh (non-resume) start —
	// see SPEC_FULL.md Open Question decision 2.
	Reset(ctx context.Context) error
}

// RedisBloomSeenSet is the production implementation: the filter
// lives in Redis via the RedisBloom module (BF.RESERVE / BF.ADD /
// BF.EXISTS), so it survives process restarts and is shared by every
// fetch worker without any in-process locking.
//
// Grounded on amankumarsingh77-searchyfy's go.mod, which pulls in
// github.com/RedisBloom/redisbloom-go for exactly this purpose.
type RedisBloomSeenSet struct {
	client *redisbloom.Client

	mu       sync.Mutex
	reserved bool
}

// NewRedisBloomSeenSet builds a seen-set client from a Redis address
// (host:port). The underlying RedisBloom client manages its own
// connection pool.
func NewRedisBloomSeenSet(addr string) *RedisBloomSeenSet {
	return &RedisBloomSeenSet{
		client: redisbloom.NewClient(addr, "polite-crawler-seenset", nil),
	}
}

func (s *RedisBloomSeenSet) ensureReserved() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reserved {
		return nil
	}
	// BF.RESERVE errors if the key already exists from a prior run;
	// that is the expected "already reserved" case on resume, so we
	// treat any error here as advisory and fall through to use the
	// filter regardless — matching the spec's "reserved lazily if
	// absent" wording, which only requires the reservation attempt.
	_ = s.client.Reserve(bloomKey, falsePositiveRate, expectedItems)
	s.reserved = true
	return nil
}

// Contains implements SeenSet.
func (s *RedisBloomSeenSet) Contains(ctx context.Context, url string) (bool, error) {
	if err := s.ensureReserved(); err != nil {
		return false, err
	}
	return s.client.Exists(bloomKey, url)
}

// Add implements SeenSet.
func (s *RedisBloomSeenSet) Add(ctx context.Context, url string) error {
	if err := s.ensureReserved(); err != nil {
		return err
	}
	_, err := s.client.Add(bloomKey, url)
	return err
}

// Reset implements SeenSet by deleting and re-reserving the filter.
func (s *RedisBloomSeenSet) Reset(ctx context.Context) error {
	s.mu.Lock()
	if err := s.client.Del(bloomKey); err != nil {
		// A missing key is not an error worth propagating; we only
		// need to guarantee the filter is empty going forward.
		_ = err
	}
	s.reserved = false
	s.mu.Unlock()
	return s.ensureReserved()
}

// LocalBloomSeenSet is an in-process fallback used when the RedisBloom
// module is unavailable (e.g. stock Redis in local development) and in
// unit tests that should not require a live Redis server at all.
//
// Grounded on the teacher's internal/crawler/frontier.go, which sizes
// an in-process bits-and-blooms filter the same way.
type LocalBloomSeenSet struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// NewLocalBloomSeenSet creates a degraded-mode, non-distributed seen
// set.
func NewLocalBloomSeenSet() *LocalBloomSeenSet {
	return &LocalBloomSeenSet{
		filter: bloom.NewWithEstimates(expectedItems, falsePositiveRate),
	}
}

func (s *LocalBloomSeenSet) Contains(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.TestString(url), nil
}

func (s *LocalBloomSeenSet) Add(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.AddString(url)
	return nil
}

func (s *LocalBloomSeenSet) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = bloom.NewWithEstimates(expectedItems, falsePositiveRate)
	return nil
}
