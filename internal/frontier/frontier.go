// Package frontier implements the Frontier Manager (§4.1): batch
// insertion of candidate URLs (deduplicated against the seen set and
// URL-level politeness) and domain-rotated hand-out of the next URL
// to fetch, serialized so only one worker ever holds a given domain.
package frontier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/politeweb/crawler/internal/domainutil"
	"github.com/politeweb/crawler/internal/frontierstore"
	"github.com/politeweb/crawler/internal/seenset"
	"github.com/politeweb/crawler/internal/urlnorm"
)

// AddOutcome tags why a single input URL was or was not accepted by
// AddURLsBatch, replacing the source's exception-driven control flow
// (Design Notes: "explicit result types and tagged variants").
type AddOutcome int

const (
	Accepted AddOutcome = iota
	RejectedByNormalization
	RejectedBySeen
	RejectedByPoliteness
	RejectedDuplicateInBatch
)

func (o AddOutcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case RejectedByNormalization:
		return "rejected_normalization"
	case RejectedBySeen:
		return "rejected_seen"
	case RejectedByPoliteness:
		return "rejected_politeness"
	case RejectedDuplicateInBatch:
		return "rejected_duplicate_in_batch"
	default:
		return "unknown"
	}
}

// PolitenessChecker is the subset of the politeness enforcer the
// frontier manager needs. Declared here (rather than importing
// internal/politeness directly) so the two packages don't form an
// import cycle: politeness never needs to call back into frontier.
type PolitenessChecker interface {
	IsURLAllowed(ctx context.Context, rawURL string) (bool, error)
	CanFetchDomainNow(ctx context.Context, domain string) (bool, error)
	RecordDomainFetchAttempt(ctx context.Context, domain string) error
}

// Manager is the Frontier Manager.
type Manager struct {
	store      *frontierstore.Store
	politeness PolitenessChecker
	seen       seenset.SeenSet
	logger     *zap.Logger
}

// New builds a Manager over the given storage, politeness, and
// seen-set collaborators.
func New(store *frontierstore.Store, politeness PolitenessChecker, seen seenset.SeenSet, logger *zap.Logger) *Manager {
	return &Manager{store: store, politeness: politeness, seen: seen, logger: logger}
}

// BatchResult summarizes one AddURLsBatch call.
type BatchResult struct {
	Accepted int
	Outcomes map[string]AddOutcome // raw input URL -> outcome
}

// AddURLsBatch implements §4.1's add path end to end.
func (m *Manager) AddURLsBatch(ctx context.Context, rawURLs []string, depth int, seeded bool) (BatchResult, error) {
	result := BatchResult{Outcomes: make(map[string]AddOutcome, len(rawURLs))}

	// Step 1: normalize, drop failures, dedupe within the batch.
	seenInBatch := make(map[string]bool, len(rawURLs))
	normalized := make([]string, 0, len(rawURLs))
	originalFor := make(map[string]string, len(rawURLs)) // normalized -> first raw input that produced it

	for _, raw := range rawURLs {
		n, err := urlnorm.Normalize(raw)
		if err != nil {
			result.Outcomes[raw] = RejectedByNormalization
			continue
		}
		if seenInBatch[n] {
			result.Outcomes[raw] = RejectedDuplicateInBatch
			continue
		}
		seenInBatch[n] = true
		originalFor[n] = raw
		normalized = append(normalized, n)
	}

	// Step 1.5: for a seeded batch, mark every domain it touches as
	// seeded *before* the politeness filter below runs against it.
	// internal/politeness's isExcluded treats "no metadata yet" plus
	// seeded_urls_only as excluded — if EnsureDomain ran only in
	// step 4-5 (after politeness), a batch's own seed URLs would be
	// the ones rejected, and that rejection would be cached forever
	// in the exclusion LRU.
	if seeded {
		seededDomains := make(map[string]bool)
		for _, u := range normalized {
			domain, err := domainutil.ExtractDomain(u)
			if err != nil {
				continue
			}
			seededDomains[domain] = true
		}
		for domain := range seededDomains {
			if _, err := m.store.EnsureDomain(ctx, domain, true); err != nil {
				return result, err
			}
		}
	}

	// Step 2: URL-level politeness filter. Rejects are recorded in
	// the seen set so they are never retried in a later batch.
	type candidate struct {
		url    string
		domain string
	}
	survivors := make([]candidate, 0, len(normalized))

	for _, u := range normalized {
		allowed, err := m.politeness.IsURLAllowed(ctx, u)
		if err != nil {
			return result, err
		}
		if !allowed {
			result.Outcomes[originalFor[u]] = RejectedByPoliteness
			if err := m.seen.Add(ctx, u); err != nil {
				return result, err
			}
			continue
		}

		domain, err := domainutil.ExtractDomain(u)
		if err != nil {
			result.Outcomes[originalFor[u]] = RejectedByNormalization
			continue
		}
		survivors = append(survivors, candidate{url: u, domain: domain})
	}

	// Step 3: bloom-filter membership. Add before write (ordering
	// matters: see §4.1 step 3 — never duplicate, may rarely lose one
	// on a crash between filter-add and file-append).
	byDomain := make(map[string][]string)
	for _, c := range survivors {
		present, err := m.seen.Contains(ctx, c.url)
		if err != nil {
			// Bloom filter failure: treated as "unknown" -> drop
			// conservatively (§7).
			result.Outcomes[originalFor[c.url]] = RejectedBySeen
			continue
		}
		if present {
			result.Outcomes[originalFor[c.url]] = RejectedBySeen
			continue
		}
		if err := m.seen.Add(ctx, c.url); err != nil {
			return result, err
		}
		byDomain[c.domain] = append(byDomain[c.domain], c.url)
		result.Outcomes[originalFor[c.url]] = Accepted
	}

	// Steps 4-5: group by domain, per-domain append.
	now := time.Now().Unix()
	for domain, urls := range byDomain {
		meta, err := m.store.EnsureDomain(ctx, domain, seeded)
		if err != nil {
			return result, err
		}
		for _, u := range urls {
			entry := frontierstore.Entry{URL: u, Depth: depth, Priority: 1.0, AddedTimestamp: now}
			if _, err := m.store.AppendEntry(ctx, domain, meta.FilePath, entry); err != nil {
				return result, err
			}
			result.Accepted++
		}
		if _, err := m.store.MarkQueued(ctx, domain); err != nil {
			return result, err
		}
	}

	return result, nil
}

// ClaimedURL is one URL handed out by GetNextURL, still under the
// caller's domain claim.
type ClaimedURL struct {
	URL    string
	Domain string
	Depth  int
}

// GetNextURL implements §4.1's consumption path. A nil result with a
// nil error means "none available now" — the caller retries after a
// short delay.
func (m *Manager) GetNextURL(ctx context.Context) (*ClaimedURL, error) {
	domain, ok, err := m.store.ClaimDomain(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	allowed, err := m.politeness.CanFetchDomainNow(ctx, domain)
	if err != nil {
		return nil, err
	}
	if !allowed {
		if err := m.store.RequeueDomain(ctx, domain); err != nil {
			return nil, err
		}
		return nil, nil
	}

	for {
		meta, exists, err := m.store.GetDomainMeta(ctx, domain)
		if err != nil {
			return nil, err
		}
		if !exists || meta.FrontierOffset >= meta.FrontierSize {
			// Exhausted (or raced away) between claim and read: do
			// not requeue, it will reappear on a future add.
			return nil, nil
		}

		entry, err := m.store.ReadEntryAt(domain, meta.FilePath, meta.FrontierOffset)
		if err != nil {
			// §4.1 failure policy: log, advance offset anyway,
			// continue with the next line.
			if m.logger != nil {
				m.logger.Warn("frontier: unreadable frontier line, skipping",
					zap.String("domain", domain), zap.Int64("offset", meta.FrontierOffset), zap.Error(err))
			}
			if _, err := m.store.IncrFrontierOffset(ctx, domain, 1); err != nil {
				return nil, err
			}
			continue
		}

		if _, err := m.store.IncrFrontierOffset(ctx, domain, 1); err != nil {
			return nil, err
		}

		allowed, err := m.politeness.IsURLAllowed(ctx, entry.URL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			if err := m.seen.Add(ctx, entry.URL); err != nil {
				return nil, err
			}
			continue
		}

		if err := m.politeness.RecordDomainFetchAttempt(ctx, domain); err != nil {
			return nil, err
		}

		newOffset := meta.FrontierOffset + 1
		if newOffset < meta.FrontierSize {
			if err := m.store.RequeueDomain(ctx, domain); err != nil {
				return nil, err
			}
		}

		return &ClaimedURL{URL: entry.URL, Domain: domain, Depth: entry.Depth}, nil
	}
}
