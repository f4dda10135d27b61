package frontierstore

import (
	"context"
	"strconv"
)

// DomainMeta mirrors the `domain:{d}` hash fields of spec §3.
type DomainMeta struct {
	FilePath       string
	FrontierSize   int64
	FrontierOffset int64
	IsSeeded       bool
	IsExcluded     bool
	RobotsTxt      string
	RobotsExpires  int64
	NextFetchTime  int64
}

func domainKey(domain string) string {
	return "domain:" + domain
}

const (
	fieldFilePath       = "file_path"
	fieldFrontierSize   = "frontier_size"
	fieldFrontierOffset = "frontier_offset"
	fieldIsSeeded       = "is_seeded"
	fieldIsExcluded     = "is_excluded"
	fieldRobotsTxt      = "robots_txt"
	fieldRobotsExpires  = "robots_expires"
	fieldNextFetchTime  = "next_fetch_time"
)

// GetDomainMeta reads the metadata hash for domain. The returned bool
// is false when no hash exists yet (domain never seen, or a
// post-crash skew where the frontier file exists but the hash does
// not — see SPEC_FULL.md Open Question decision 3, handled by the
// caller starting that domain fresh).
func (s *Store) GetDomainMeta(ctx context.Context, domain string) (DomainMeta, bool, error) {
	raw, err := s.redis.HGetAll(ctx, domainKey(domain))
	if err != nil {
		return DomainMeta{}, false, err
	}
	if len(raw) == 0 {
		return DomainMeta{}, false, nil
	}

	return DomainMeta{
		FilePath:       raw[fieldFilePath],
		FrontierSize:   parseInt64(raw[fieldFrontierSize]),
		FrontierOffset: parseInt64(raw[fieldFrontierOffset]),
		IsSeeded:       raw[fieldIsSeeded] == "1",
		IsExcluded:     raw[fieldIsExcluded] == "1",
		RobotsTxt:      raw[fieldRobotsTxt],
		RobotsExpires:  parseInt64(raw[fieldRobotsExpires]),
		NextFetchTime:  parseInt64(raw[fieldNextFetchTime]),
	}, true, nil
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// initDomainMeta creates the metadata hash for a domain seen for the
// first time, per §4.1 "creating the file and metadata hash on first
// use".
func (s *Store) initDomainMeta(ctx context.Context, domain, filePath string, seeded bool) error {
	fields := map[string]string{
		fieldFilePath:       filePath,
		fieldFrontierSize:   "0",
		fieldFrontierOffset: "0",
		fieldIsExcluded:     "0",
	}
	if seeded {
		fields[fieldIsSeeded] = "1"
	} else {
		fields[fieldIsSeeded] = "0"
	}
	return s.redis.HSet(ctx, domainKey(domain), fields)
}

// MarkExcluded sets is_excluded=1 for domain (§4.2 manual exclusions).
func (s *Store) MarkExcluded(ctx context.Context, domain string) error {
	return s.redis.HSet(ctx, domainKey(domain), map[string]string{fieldIsExcluded: "1"})
}

// SetRobots persists a parsed-or-empty robots.txt body and its expiry.
func (s *Store) SetRobots(ctx context.Context, domain, body string, expiresAt int64) error {
	return s.redis.HSet(ctx, domainKey(domain), map[string]string{
		fieldRobotsTxt:     body,
		fieldRobotsExpires: strconv.FormatInt(expiresAt, 10),
	})
}

// SetNextFetchTime persists next_fetch_time for domain.
func (s *Store) SetNextFetchTime(ctx context.Context, domain string, at int64) error {
	return s.redis.HSet(ctx, domainKey(domain), map[string]string{
		fieldNextFetchTime: strconv.FormatInt(at, 10),
	})
}

// IncrFrontierSize adds delta to frontier_size and returns the new
// total.
func (s *Store) IncrFrontierSize(ctx context.Context, domain string, delta int64) (int64, error) {
	return s.redis.HIncrBy(ctx, domainKey(domain), fieldFrontierSize, delta)
}

// IncrFrontierOffset adds delta to frontier_offset and returns the new
// total.
func (s *Store) IncrFrontierOffset(ctx context.Context, domain string, delta int64) (int64, error) {
	return s.redis.HIncrBy(ctx, domainKey(domain), fieldFrontierOffset, delta)
}
