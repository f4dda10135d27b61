// Package politeness implements the Politeness Enforcer (§4.2): the
// authority on whether a URL or domain may be fetched right now,
// combining robots.txt retrieval/parsing, manual exclusion lists,
// per-agent crawl-delay extraction, and per-domain next-fetch-time
// bookkeeping.
package politeness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/politeweb/crawler/internal/domainutil"
	"github.com/politeweb/crawler/internal/frontierstore"
	"github.com/politeweb/crawler/internal/lrucache"
)

const (
	robotsCacheCapacity    = 100_000
	exclusionCacheCapacity = 100_000
	robotsTTL              = 24 * time.Hour
)

type robotsCacheEntry struct {
	data      *robotstxt.RobotsData
	expiresAt int64
}

// Enforcer is the Politeness Enforcer.
type Enforcer struct {
	store *frontierstore.Store

	robotsCache    *lrucache.Cache[string, robotsCacheEntry]
	exclusionCache *lrucache.Cache[string, bool]

	httpClient *http.Client

	userAgent     string // full string sent on every request (with contact email)
	agentToken    string // simplified token used for robots.txt matching
	minCrawlDelay time.Duration
	robotsTimeout time.Duration
	seededOnly    bool

	logger *zap.Logger
}

// New builds an Enforcer. userAgent is the full User-Agent string sent
// with every request (§6 `user_agent`); the token used to match
// robots.txt groups is derived from it (§4.2: "parentheses may require
// the configured agent to be simplified").
func New(store *frontierstore.Store, userAgent string, minCrawlDelay, robotsTimeout time.Duration, seededOnly bool, logger *zap.Logger) (*Enforcer, error) {
	robotsCache, err := lrucache.New[string, robotsCacheEntry](robotsCacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("politeness: build robots cache: %w", err)
	}
	exclusionCache, err := lrucache.New[string, bool](exclusionCacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("politeness: build exclusion cache: %w", err)
	}

	return &Enforcer{
		store:          store,
		robotsCache:    robotsCache,
		exclusionCache: exclusionCache,
		httpClient:     &http.Client{Timeout: robotsTimeout},
		userAgent:      userAgent,
		agentToken:     simplifyAgent(userAgent),
		minCrawlDelay:  minCrawlDelay,
		robotsTimeout:  robotsTimeout,
		seededOnly:     seededOnly,
		logger:         logger,
	}, nil
}

// simplifyAgent extracts the bare product token robots.txt group
// matching should use, e.g. "PoliteCrawler/1.0 (+mailto:ops@example.com)"
// -> "PoliteCrawler". temoto/robotstxt matches agent tokens as
// case-insensitive prefixes; parenthetical comments and version suffixes
// only hurt the match.
func simplifyAgent(userAgent string) string {
	token := userAgent
	if i := strings.IndexByte(token, '('); i >= 0 {
		token = token[:i]
	}
	if i := strings.IndexByte(token, '/'); i >= 0 {
		token = token[:i]
	}
	return strings.TrimSpace(token)
}

// IsURLAllowed implements §4.2's is_url_allowed.
func (e *Enforcer) IsURLAllowed(ctx context.Context, rawURL string) (bool, error) {
	domain, err := domainutil.ExtractDomain(rawURL)
	if err != nil {
		return false, nil
	}

	excluded, err := e.isExcluded(ctx, domain)
	if err != nil {
		return false, err
	}
	if excluded {
		return false, nil
	}

	robots, err := e.getRobots(ctx, domain)
	if err != nil {
		return false, err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, nil
	}
	path := parsed.Path
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	if path == "" {
		path = "/"
	}

	return robots.TestAgent(path, e.agentToken), nil
}

// CanFetchDomainNow implements §4.2's can_fetch_domain_now.
func (e *Enforcer) CanFetchDomainNow(ctx context.Context, domain string) (bool, error) {
	meta, exists, err := e.store.GetDomainMeta(ctx, domain)
	if err != nil {
		return false, err
	}
	if !exists || meta.NextFetchTime == 0 {
		return true, nil
	}
	return time.Now().Unix() >= meta.NextFetchTime, nil
}

// RecordDomainFetchAttempt implements §4.2's record_domain_fetch_attempt.
func (e *Enforcer) RecordDomainFetchAttempt(ctx context.Context, domain string) error {
	delay, err := e.GetCrawlDelay(ctx, domain)
	if err != nil {
		return err
	}
	next := time.Now().Add(delay).Unix()
	return e.store.SetNextFetchTime(ctx, domain, next)
}

// GetCrawlDelay implements §4.2's get_crawl_delay: the configured
// user-agent's delay, falling back to the wildcard group, falling back
// to minCrawlDelay — and never returning less than minCrawlDelay.
func (e *Enforcer) GetCrawlDelay(ctx context.Context, domain string) (time.Duration, error) {
	robots, err := e.getRobots(ctx, domain)
	if err != nil {
		return e.minCrawlDelay, err
	}

	delay := robots.FindGroup(e.agentToken).CrawlDelay
	if delay < e.minCrawlDelay {
		delay = e.minCrawlDelay
	}
	return delay, nil
}

// isExcluded evaluates manual-exclusion state for domain, per §4.2's
// two modes (default, and seeded-only).
func (e *Enforcer) isExcluded(ctx context.Context, domain string) (bool, error) {
	if v, ok := e.exclusionCache.Get(domain); ok {
		return v, nil
	}

	meta, exists, err := e.store.GetDomainMeta(ctx, domain)
	if err != nil {
		return false, err
	}

	var excluded bool
	if exists {
		excluded = meta.IsExcluded
		if e.seededOnly && !meta.IsSeeded {
			excluded = true
		}
	} else if e.seededOnly {
		// Domain has no metadata at all yet: in seeded-only mode it
		// cannot be seeded, so it is excluded by definition.
		excluded = true
	}

	e.exclusionCache.Add(domain, excluded)
	return excluded, nil
}

// getRobots returns the parsed robots.txt for domain, consulting the
// in-memory LRU, then the Redis-cached body, then fetching fresh per
// the §4.2 retrieval algorithm.
func (e *Enforcer) getRobots(ctx context.Context, domain string) (*robotstxt.RobotsData, error) {
	now := time.Now().Unix()

	if entry, ok := e.robotsCache.Get(domain); ok && entry.expiresAt > now {
		return entry.data, nil
	}

	meta, exists, err := e.store.GetDomainMeta(ctx, domain)
	if err != nil {
		return nil, err
	}
	if exists && meta.RobotsExpires > now {
		data, parseErr := parseRobots([]byte(meta.RobotsTxt))
		if parseErr == nil {
			e.robotsCache.Add(domain, robotsCacheEntry{data: data, expiresAt: meta.RobotsExpires})
			return data, nil
		}
		// Fall through to refetch if the cached body somehow fails to
		// parse now (shouldn't happen; defensive).
	}

	body := e.fetchRobotsBody(ctx, domain)
	data, parseErr := parseRobots(body)
	if parseErr != nil {
		// Malformed body: treat as empty (§4.2 step 4).
		data, _ = parseRobots(nil)
		body = nil
	}

	expiresAt := now + int64(robotsTTL.Seconds())
	if err := e.store.SetRobots(ctx, domain, string(body), expiresAt); err != nil {
		return nil, err
	}
	e.robotsCache.Add(domain, robotsCacheEntry{data: data, expiresAt: expiresAt})

	return data, nil
}

// fetchRobotsBody implements §4.2's retrieval algorithm: http, then
// https, then empty (allow-all). Both attempts share robotsTimeout via
// the Enforcer's http.Client.
func (e *Enforcer) fetchRobotsBody(ctx context.Context, domain string) []byte {
	for _, scheme := range []string{"http", "https"} {
		body, ok := e.tryFetchRobots(ctx, scheme, domain)
		if ok {
			return body
		}
	}
	return nil
}

func (e *Enforcer) tryFetchRobots(ctx context.Context, scheme, domain string) ([]byte, bool) {
	reqURL := fmt.Sprintf("%s://%s/robots.txt", scheme, domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, false
	}
	return body, true
}

// parseRobots wraps robotstxt.FromBytes, additionally rejecting bodies
// containing a NUL byte (§4.2 step 4: "contains a NUL byte or is
// otherwise malformed").
func parseRobots(body []byte) (*robotstxt.RobotsData, error) {
	if bytes.IndexByte(body, 0) >= 0 {
		return robotstxt.FromBytes(nil)
	}
	return robotstxt.FromBytes(body)
}
