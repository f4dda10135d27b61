// Package fetchpool implements the Fetch Worker Pool (§4.3): N
// cooperative workers, each looping "claim URL -> fetch -> enqueue
// body → record outcome", sharing one HTTP client with connection
// pooling.
//
// The source's single-threaded cooperative-task model (§5) maps onto
// Go as N goroutines over one *http.Client rather than N tasks on one
// event loop; the per-domain serialization invariant still comes from
// the frontier's claim-push-back discipline, not from anything in
// this package.
package fetchpool

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/politeweb/crawler/internal/frontier"
	"github.com/politeweb/crawler/internal/httpclient"
	"github.com/politeweb/crawler/internal/renderer"
)

const fetchQueueKey = "fetch:queue"

// FetchQueueItem is the JSON payload pushed to `fetch:queue` for the
// parse worker (§6 "Inter-process queue format").
type FetchQueueItem struct {
	URL              string `json:"url"`
	Domain           string `json:"domain"`
	Depth            int    `json:"depth"`
	HTMLContent      string `json:"html_content"`
	ContentType      string `json:"content_type"`
	CrawledTimestamp int64  `json:"crawled_timestamp"`
	StatusCode       int    `json:"status_code"`
	IsRedirect       bool   `json:"is_redirect"`
	InitialURL       string `json:"initial_url"`
}

// QueuePusher is the narrow Redis capability fetchpool needs to push
// fetched HTML bodies onward.
type QueuePusher interface {
	RPush(ctx context.Context, key string, values ...string) error
}

// VisitedRecord is one non-HTML-or-error outcome recorded to the
// content-persistence layer (§4.3 step 4).
type VisitedRecord struct {
	URL         string
	StatusCode  int
	ContentType string
	Err         string
}

// VisitedRecorder persists VisitedRecords. internal/contentstore
// implements this.
type VisitedRecorder interface {
	RecordVisited(ctx context.Context, rec VisitedRecord) error
}

// Metrics is the narrow counters interface internal/metrics implements.
type Metrics interface {
	IncrFetched()
	IncrHTML()
	IncrError(kind string)
}

// Frontier is the subset of *frontier.Manager the pool drives.
type Frontier interface {
	GetNextURL(ctx context.Context) (*frontier.ClaimedURL, error)
}

// Options configures a Pool.
type Options struct {
	NumWorkers   int
	PollInterval time.Duration // how long a worker sleeps on an empty frontier (§4.3: ~1s)
	IdleTimeout  time.Duration // sustained emptiness after which the pool signals completion
}

// Pool is the Fetch Worker Pool.
type Pool struct {
	frontier Frontier
	client   *httpclient.Client
	queue    QueuePusher
	visited  VisitedRecorder
	metrics  Metrics
	logger   *zap.Logger

	numWorkers   int
	pollInterval time.Duration
	idleTimeout  time.Duration

	lastProgress atomic.Int64
}

// New builds a Pool.
func New(f Frontier, client *httpclient.Client, queue QueuePusher, visited VisitedRecorder, metrics Metrics, logger *zap.Logger, opts Options) *Pool {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Second
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}

	p := &Pool{
		frontier:     f,
		client:       client,
		queue:        queue,
		visited:      visited,
		metrics:      metrics,
		logger:       logger,
		numWorkers:   opts.NumWorkers,
		pollInterval: opts.PollInterval,
		idleTimeout:  opts.IdleTimeout,
	}
	p.lastProgress.Store(time.Now().UnixNano())
	return p
}

// Run starts NumWorkers worker goroutines and blocks until the
// frontier has been sustainedly empty for IdleTimeout or ctx is
// cancelled, whichever happens first.
func (p *Pool) Run(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < p.numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.workerLoop(workerCtx, id)
		}(i)
	}

	go p.monitorIdle(workerCtx, cancel)

	wg.Wait()
}

func (p *Pool) monitorIdle(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(time.Unix(0, p.lastProgress.Load())) > p.idleTimeout {
				if p.logger != nil {
					p.logger.Info("fetchpool: frontier sustained empty, signaling completion")
				}
				cancel()
				return
			}
		}
	}
}

func (p *Pool) workerLoop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		claimed, err := p.frontier.GetNextURL(ctx)
		if err != nil {
			if p.logger != nil {
				p.logger.Error("fetchpool: get_next_url failed", zap.Int("worker", id), zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		if claimed == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		p.lastProgress.Store(time.Now().UnixNano())
		p.processSafely(ctx, id, claimed)
	}
}

// processSafely wraps process with panic recovery, grounded on the
// teacher's internal/crawler/safeguards.go SafeProcessor — a panic
// during one URL's processing must not take down the worker, and must
// never retain the fetch result (including a recovered HTML body) in
// the panic value itself.
func (p *Pool) processSafely(ctx context.Context, id int, claimed *frontier.ClaimedURL) {
	defer func() {
		if r := recover(); r != nil {
			if p.logger != nil {
				p.logger.Error("fetchpool: panic recovered",
					zap.Int("worker", id), zap.String("url", claimed.URL),
					zap.Any("panic", r), zap.String("stack", string(debug.Stack())))
			}
			if p.metrics != nil {
				p.metrics.IncrError("panic")
			}
		}
	}()

	p.process(ctx, claimed)
}

func (p *Pool) process(ctx context.Context, claimed *frontier.ClaimedURL) {
	result, err := p.client.Fetch(ctx, claimed.URL)
	if p.metrics != nil {
		p.metrics.IncrFetched()
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.IncrError("transport")
		}
		p.recordVisited(ctx, VisitedRecord{URL: claimed.URL, Err: err.Error()})
		return
	}

	// §4.3 step 4: non-HTML content type or error status.
	if result.StatusCode >= 400 || !isHTML(result.ContentType) {
		kind := "status"
		if result.StatusCode < 400 {
			kind = "non_html"
		}
		if p.metrics != nil {
			p.metrics.IncrError(kind)
		}
		p.recordVisited(ctx, VisitedRecord{URL: result.FinalURL, StatusCode: result.StatusCode, ContentType: result.ContentType})
		return
	}

	// JS rendering itself is a Non-goal; this only counts pages that
	// likely needed it, so the gap is visible in metrics without ever
	// launching a browser.
	if renderer.ShouldRender(string(result.Body)) && p.metrics != nil {
		p.metrics.IncrError("likely_js")
	}

	// §4.3 step 5: HTML -> push to fetch:queue.
	item := FetchQueueItem{
		URL:              result.FinalURL,
		Domain:           claimed.Domain,
		Depth:            claimed.Depth,
		HTMLContent:      string(result.Body),
		ContentType:      result.ContentType,
		CrawledTimestamp: time.Now().Unix(),
		StatusCode:       result.StatusCode,
		IsRedirect:       result.IsRedirect,
		InitialURL:       result.InitialURL,
	}

	payload, err := json.Marshal(item)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("fetchpool: marshal fetch queue item", zap.String("url", claimed.URL), zap.Error(err))
		}
		if p.metrics != nil {
			p.metrics.IncrError("marshal")
		}
		return
	}

	if err := p.queue.RPush(ctx, fetchQueueKey, string(payload)); err != nil {
		if p.logger != nil {
			p.logger.Error("fetchpool: push fetch queue item", zap.String("url", claimed.URL), zap.Error(err))
		}
		if p.metrics != nil {
			p.metrics.IncrError("queue_push")
		}
		return
	}

	if p.metrics != nil {
		p.metrics.IncrHTML()
	}

	// §4.3 step 6: drop the local reference to the body now that it
	// has been serialized onward.
	result.Body = nil
}

func (p *Pool) recordVisited(ctx context.Context, rec VisitedRecord) {
	if p.visited == nil {
		return
	}
	if err := p.visited.RecordVisited(ctx, rec); err != nil && p.logger != nil {
		p.logger.Warn("fetchpool: record visited failed", zap.String("url", rec.URL), zap.Error(err))
	}
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
