// Package metrics tracks per-status crawl counters and periodically
// emits them as one structured log line (SPEC_FULL.md Part D.4),
// replacing the teacher's fmt.Printf progress ticker with zap logging
// per this repo's ambient-stack convention (B.2).
package metrics

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Counters is the set of running totals the fetch worker pool and
// parse worker update concurrently. Satisfies fetchpool.Metrics.
type Counters struct {
	fetched atomic.Int64
	html    atomic.Int64
	errors  map[string]*atomic.Int64 // fixed key set below, no map growth at runtime

	pagesParsed atomic.Int64
	linksFound  atomic.Int64
}

var errorKinds = []string{"transport", "status", "non_html", "panic", "marshal", "queue_push", "unmarshal", "parse", "frontier_add", "likely_js", "other"}

// New builds a Counters with a fixed, pre-allocated set of error-kind
// counters so IncrError never needs to mutate a shared map at
// runtime.
func New() *Counters {
	c := &Counters{errors: make(map[string]*atomic.Int64, len(errorKinds))}
	for _, k := range errorKinds {
		c.errors[k] = &atomic.Int64{}
	}
	return c
}

func (c *Counters) IncrFetched() { c.fetched.Add(1) }
func (c *Counters) IncrHTML()    { c.html.Add(1) }

// IncrError increments the named error-kind counter. Unknown kinds
// are counted under "other" rather than silently dropped. The error
// map itself is fixed at New() time so this never mutates it
// concurrently.
func (c *Counters) IncrError(kind string) {
	if counter, ok := c.errors[kind]; ok {
		counter.Add(1)
		return
	}
	c.errors["other"].Add(1)
}

func (c *Counters) IncrPagesParsed() { c.pagesParsed.Add(1) }
func (c *Counters) IncrLinksFound(n int64) {
	c.linksFound.Add(n)
}

// Snapshot is an immutable copy of the counters at one instant, the
// shape logged on each tick.
type Snapshot struct {
	Fetched     int64
	HTML        int64
	PagesParsed int64
	LinksFound  int64
	Errors      map[string]int64
}

func (c *Counters) Snapshot() Snapshot {
	errs := make(map[string]int64, len(c.errors))
	for k, v := range c.errors {
		errs[k] = v.Load()
	}
	return Snapshot{
		Fetched:     c.fetched.Load(),
		HTML:        c.html.Load(),
		PagesParsed: c.pagesParsed.Load(),
		LinksFound:  c.linksFound.Load(),
		Errors:      errs,
	}
}

// Reporter periodically logs a Counters snapshot until its context is
// cancelled.
type Reporter struct {
	counters *Counters
	logger   *zap.Logger
	interval time.Duration
}

// NewReporter builds a Reporter that logs every interval.
func NewReporter(counters *Counters, logger *zap.Logger, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reporter{counters: counters, logger: logger, interval: interval}
}

// Run blocks, logging one structured snapshot per tick, until ctx is
// cancelled. The final snapshot is always logged once more on exit so
// a short-lived crawl still reports its totals.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log()
			return
		case <-ticker.C:
			r.log()
		}
	}
}

func (r *Reporter) log() {
	if r.logger == nil {
		return
	}
	snap := r.counters.Snapshot()
	fields := make([]zap.Field, 0, 4+len(snap.Errors))
	fields = append(fields,
		zap.Int64("fetched", snap.Fetched),
		zap.Int64("html", snap.HTML),
		zap.Int64("pages_parsed", snap.PagesParsed),
		zap.Int64("links_found", snap.LinksFound),
	)
	for kind, count := range snap.Errors {
		if count == 0 {
			continue
		}
		fields = append(fields, zap.Int64("errors_"+kind, count))
	}
	r.logger.Info("crawl progress", fields...)
}
