// Package parseworker implements the Parse Worker (§4.4): a process
// separate from the fetch pool that consumes HTML bodies off Redis
// list `fetch:queue`, extracts links and the page title, records the
// page, and feeds discovered links back into the frontier at depth+1.
//
// Grounded on the teacher's internal/parser/parser.go for the
// extraction step (now internal/htmllink) and on the overall
// producer/consumer shape §4.4 describes as running "as a separate
// process... communicating via Redis" — expressed in Go as its own
// goroutine loop over a blocking Redis pop rather than a literal OS
// process, since nothing in the teacher or pack spawns worker
// subprocesses for this kind of fan-out.
package parseworker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/politeweb/crawler/internal/contentstore"
	"github.com/politeweb/crawler/internal/fetchpool"
	"github.com/politeweb/crawler/internal/frontier"
	"github.com/politeweb/crawler/internal/frontierstore"
	"github.com/politeweb/crawler/internal/htmllink"
)

const fetchQueueKey = "fetch:queue"

// QueueConsumer is the narrow Redis capability the parse worker needs
// to drain fetch:queue.
type QueueConsumer interface {
	BLPop(ctx context.Context, timeoutSeconds int64, keys ...string) ([]string, error)
}

// FrontierBatcher is the subset of *frontier.Manager the parse worker
// drives to feed discovered links back in.
type FrontierBatcher interface {
	AddURLsBatch(ctx context.Context, rawURLs []string, depth int, seeded bool) (frontier.BatchResult, error)
}

// PageRecorder persists the parsed page and its outbound links.
type PageRecorder interface {
	SavePage(ctx context.Context, page contentstore.VisitedPage) error
	SaveLinks(sourceURL string, targets []string) error
}

// Metrics is the narrow counters interface internal/metrics implements.
type Metrics interface {
	IncrPagesParsed()
	IncrLinksFound(n int64)
	IncrError(kind string)
}

// Options configures a Worker.
type Options struct {
	NumWorkers     int
	BlockTimeout   time.Duration // BLPop block duration per attempt
	MaxLinksPerDoc int           // 0 = unbounded
}

// Worker is the Parse Worker.
type Worker struct {
	queue    QueueConsumer
	frontier FrontierBatcher
	pages    PageRecorder
	metrics  Metrics
	logger   *zap.Logger

	numWorkers     int
	blockTimeout   time.Duration
	maxLinksPerDoc int
}

// New builds a Worker.
func New(queue QueueConsumer, frontier FrontierBatcher, pages PageRecorder, metrics Metrics, logger *zap.Logger, opts Options) *Worker {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	if opts.BlockTimeout <= 0 {
		opts.BlockTimeout = 5 * time.Second
	}
	return &Worker{
		queue:          queue,
		frontier:       frontier,
		pages:          pages,
		metrics:        metrics,
		logger:         logger,
		numWorkers:     opts.NumWorkers,
		blockTimeout:   opts.BlockTimeout,
		maxLinksPerDoc: opts.MaxLinksPerDoc,
	}
}

// Run starts NumWorkers goroutines, each looping BLPop against
// fetch:queue until ctx is cancelled. Run itself blocks until every
// worker has exited.
func (w *Worker) Run(ctx context.Context) {
	done := make(chan struct{}, w.numWorkers)
	for i := 0; i < w.numWorkers; i++ {
		go func(id int) {
			w.loop(ctx, id)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < w.numWorkers; i++ {
		<-done
	}
}

func (w *Worker) loop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		blockSeconds := int64(w.blockTimeout / time.Second)
		if blockSeconds <= 0 {
			blockSeconds = 1
		}
		vals, err := w.queue.BLPop(ctx, blockSeconds, fetchQueueKey)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Timeout with no item is the common case for BLPop's
			// ErrNotFound; any other error is logged and retried.
			if !errors.Is(err, frontierstore.ErrNotFound) && w.logger != nil {
				w.logger.Warn("parseworker: blpop failed", zap.Int("worker", id), zap.Error(err))
			}
			continue
		}
		if len(vals) < 2 {
			continue
		}

		w.processSafely(ctx, id, vals[1])
	}
}

func (w *Worker) processSafely(ctx context.Context, id int, payload string) {
	defer func() {
		if r := recover(); r != nil {
			if w.logger != nil {
				w.logger.Error("parseworker: panic recovered", zap.Int("worker", id), zap.Any("panic", r))
			}
			if w.metrics != nil {
				w.metrics.IncrError("panic")
			}
		}
	}()
	w.process(ctx, payload)
}

func (w *Worker) process(ctx context.Context, payload string) {
	var item fetchpool.FetchQueueItem
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		if w.logger != nil {
			w.logger.Error("parseworker: unmarshal fetch queue item", zap.Error(err))
		}
		if w.metrics != nil {
			w.metrics.IncrError("unmarshal")
		}
		return
	}

	extracted, err := htmllink.Extract(item.HTMLContent, item.URL)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("parseworker: extract failed", zap.String("url", item.URL), zap.Error(err))
		}
		if w.metrics != nil {
			w.metrics.IncrError("parse")
		}
		extracted = htmllink.ExtractResult{}
	}

	links := extracted.Links
	if w.maxLinksPerDoc > 0 && len(links) > w.maxLinksPerDoc {
		links = links[:w.maxLinksPerDoc]
	}

	if w.pages != nil {
		page := contentstore.VisitedPage{
			URL:         item.URL,
			StatusCode:  item.StatusCode,
			ContentType: item.ContentType,
			Title:       extracted.Title,
			LinkCount:   len(links),
			Depth:       item.Depth,
			CrawledAt:   time.Unix(item.CrawledTimestamp, 0).UTC(),
		}
		if err := w.pages.SavePage(ctx, page); err != nil && w.logger != nil {
			w.logger.Warn("parseworker: save page failed", zap.String("url", item.URL), zap.Error(err))
		}
		if len(links) > 0 {
			if err := w.pages.SaveLinks(item.URL, links); err != nil && w.logger != nil {
				w.logger.Warn("parseworker: save links failed", zap.String("url", item.URL), zap.Error(err))
			}
		}
	}

	if w.metrics != nil {
		w.metrics.IncrPagesParsed()
		w.metrics.IncrLinksFound(int64(len(links)))
	}

	if len(links) == 0 || w.frontier == nil {
		return
	}

	if _, err := w.frontier.AddURLsBatch(ctx, links, item.Depth+1, false); err != nil {
		if w.logger != nil {
			w.logger.Error("parseworker: add urls batch failed", zap.String("url", item.URL), zap.Error(err))
		}
		if w.metrics != nil {
			w.metrics.IncrError("frontier_add")
		}
	}
}
