package cli

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/politeweb/crawler/internal/config"
	"github.com/politeweb/crawler/internal/contentstore"
	"github.com/politeweb/crawler/internal/fetchpool"
	"github.com/politeweb/crawler/internal/frontier"
	"github.com/politeweb/crawler/internal/frontierstore"
	"github.com/politeweb/crawler/internal/httpclient"
	"github.com/politeweb/crawler/internal/logging"
	"github.com/politeweb/crawler/internal/metrics"
	"github.com/politeweb/crawler/internal/parseworker"
	"github.com/politeweb/crawler/internal/politeness"
	"github.com/politeweb/crawler/internal/seenset"

	"context"
)

// runtime bundles every subsystem one crawl/resume/parse-worker
// invocation needs, so each command's RunE can stay a short sequence
// of "build runtime, do the command-specific thing, close runtime".
type runtime struct {
	cfg     config.Config
	logger  *zap.Logger
	redis   *frontierstore.GoRedisClient
	store   *frontierstore.Store
	seen    seenset.SeenSet
	polite  *politeness.Enforcer
	frontMg *frontier.Manager
	http    *httpclient.Client
	content *contentstore.Store
	counters *metrics.Counters
}

func newRuntime(cfg config.Config) (*runtime, error) {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("cli: build logger: %w", err)
	}

	redis := frontierstore.NewGoRedisClient(cfg.RedisAddr(), cfg.RedisDB, cfg.RedisTimeout)
	store := frontierstore.New(redis, cfg.DataDir)

	seen := seenset.NewRedisBloomSeenSet(cfg.RedisAddr())

	userAgent := userAgentWithContact(cfg.UserAgent, cfg.Email)

	polite, err := politeness.New(store, userAgent, cfg.MinCrawlDelay, cfg.RobotsTimeout, cfg.SeededURLsOnly, logger)
	if err != nil {
		return nil, fmt.Errorf("cli: build politeness enforcer: %w", err)
	}

	frontMg := frontier.New(store, polite, seen, logger)

	httpClient := httpclient.New(httpclient.Options{
		UserAgent:            userAgent,
		FetchTimeout:         cfg.FetchTimeout,
		MaxRedirects:         cfg.MaxRedirects,
		MaxBodyBytes:         cfg.MaxBodyBytes,
		EnableTLSFingerprint: cfg.EnableTLSFingerprint,
		UseHeaderRotation:    cfg.UseHeaderRotation,
		MaxRetries:           cfg.MaxRetries,
	})

	sqlitePath := ""
	if cfg.EnableSQLiteIndex {
		sqlitePath = cfg.DataDir + "/index.sqlite3"
	}
	content, err := contentstore.New(redis, cfg.DataDir, sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("cli: build content store: %w", err)
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		redis:    redis,
		store:    store,
		seen:     seen,
		polite:   polite,
		frontMg:  frontMg,
		http:     httpClient,
		content:  content,
		counters: metrics.New(),
	}, nil
}

// userAgentWithContact embeds a contact email in the User-Agent string
// (§6), matching the "Name/Version (+mailto:address)" shape robots.txt
// parsers and site operators expect. A User-Agent that already carries
// a parenthetical comment is left alone rather than getting a second
// one appended.
func userAgentWithContact(userAgent, email string) string {
	if email == "" || strings.Contains(userAgent, "(") {
		return userAgent
	}
	return fmt.Sprintf("%s (+mailto:%s)", userAgent, email)
}

func (r *runtime) close() {
	if err := r.content.Close(); err != nil {
		r.logger.Warn("cli: close content store failed", zap.Error(err))
	}
	if err := r.store.Close(); err != nil {
		r.logger.Warn("cli: close frontier store failed", zap.Error(err))
	}
	_ = r.logger.Sync()
}

// runWorkers starts the fetch pool, the parse worker, and the metrics
// reporter, and blocks until the frontier drains, cfg.MaxPages or
// cfg.MaxDuration is hit, or the process receives SIGINT/SIGTERM (in
// which case in-flight work gets up to cfg.ShutdownGracePeriod to
// finish before the worker context is cancelled out from under it).
func (r *runtime) runWorkers(ctx context.Context) {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	pool := fetchpool.New(r.frontMg, r.http, r.redis, r.content, r.counters, r.logger, fetchpool.Options{
		NumWorkers: r.cfg.MaxWorkers,
	})
	parser := parseworker.New(r.redis, r.frontMg, r.content, r.counters, r.logger, parseworker.Options{
		NumWorkers: r.cfg.ParseWorkers,
	})
	reporter := metrics.NewReporter(r.counters, r.logger, 0)

	reporterCtx, cancelReporter := context.WithCancel(workerCtx)
	go reporter.Run(reporterCtx)

	done := make(chan struct{}, 2)
	go func() { pool.Run(workerCtx); done <- struct{}{} }()
	go func() { parser.Run(workerCtx); done <- struct{}{} }()

	allDone := make(chan struct{})
	go func() {
		<-done
		<-done
		close(allDone)
	}()

	r.superviseShutdown(sigCtx, cancelWorkers, allDone)

	<-allDone
	cancelReporter()
}

// superviseShutdown cancels cancelWorkers as soon as any stop
// condition is met: cfg.MaxPages successful fetches recorded (§6
// "cap on successful fetches"), cfg.MaxDuration elapsed (§6
// "wall-clock time cap"), or a SIGINT/SIGTERM after
// cfg.ShutdownGracePeriod has passed without the workers finishing on
// their own (§5 step 2). Either cap is ignored when its config value
// is zero. Returns once the workers are done or a stop condition has
// fired the hard cancel.
func (r *runtime) superviseShutdown(sigCtx context.Context, cancelWorkers context.CancelFunc, allDone <-chan struct{}) {
	start := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-allDone:
			return
		case <-sigCtx.Done():
			r.logger.Info("cli: shutdown signal received, draining in-flight work",
				zap.Duration("grace_period", r.cfg.ShutdownGracePeriod))
			grace := time.NewTimer(r.cfg.ShutdownGracePeriod)
			defer grace.Stop()
			select {
			case <-allDone:
			case <-grace.C:
				r.logger.Info("cli: shutdown grace period elapsed, cancelling in-flight work")
				cancelWorkers()
			}
			return
		case <-ticker.C:
			if r.cfg.MaxPages > 0 && r.counters.Snapshot().Fetched >= int64(r.cfg.MaxPages) {
				r.logger.Info("cli: max_pages reached, stopping", zap.Int("max_pages", r.cfg.MaxPages))
				cancelWorkers()
				return
			}
			if r.cfg.MaxDuration > 0 && time.Since(start) >= r.cfg.MaxDuration {
				r.logger.Info("cli: max_duration elapsed, stopping", zap.Duration("max_duration", r.cfg.MaxDuration))
				cancelWorkers()
				return
			}
		}
	}
}

// runParseWorkerOnly starts just the parse worker and the metrics
// reporter, for the standalone parse-worker command (§6, module map
// "separate-process contract"): a process with no fetch pool that
// only drains fetch:queue and feeds discovered links back into the
// frontier.
func (r *runtime) runParseWorkerOnly(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	parser := parseworker.New(r.redis, r.frontMg, r.content, r.counters, r.logger, parseworker.Options{
		NumWorkers: r.cfg.ParseWorkers,
	})
	reporter := metrics.NewReporter(r.counters, r.logger, 0)

	reporterCtx, cancelReporter := context.WithCancel(ctx)
	go reporter.Run(reporterCtx)

	parser.Run(ctx)
	cancelReporter()
}
