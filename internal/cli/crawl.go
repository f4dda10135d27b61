package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/politeweb/crawler/internal/seedloader"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Start a fresh crawl from a seed file",
	Long:  `Loads seed URLs, clears the seen-set bloom filter, enqueues the seeds, and runs the fetch and parse worker pools until the frontier drains.`,
	RunE:  runCrawl,
}

func init() {
	crawlCmd.Flags().String("seed-file", "", "path to a newline-delimited seed URL file (required)")
	crawlCmd.Flags().String("data-dir", "", "directory for the crawl's JSONL archive and SQLite index")
	crawlCmd.Flags().String("exclude-file", "", "path to a newline-delimited manual-exclusion file")
	crawlCmd.Flags().Int("workers", 0, "fetch worker pool size")
	crawlCmd.Flags().Int("parse-workers", 0, "parse worker pool size")
	crawlCmd.Flags().String("user-agent", "", "User-Agent header sent on every request")
	crawlCmd.Flags().String("redis-host", "", "Redis host")
	crawlCmd.Flags().Int("redis-port", 0, "Redis port")
	crawlCmd.Flags().Int("redis-db", 0, "Redis logical DB index")
	crawlCmd.Flags().String("log-level", "", "zap log level (debug/info/warn/error)")
	crawlCmd.Flags().Bool("seeded-urls-only", false, "restrict crawling to the domains of the seed URLs")
	crawlCmd.Flags().Bool("enable-tls-fingerprint", false, "dial with a browser-shaped TLS ClientHello via uTLS")
	crawlCmd.Flags().Bool("enable-sqlite", false, "maintain a SQLite secondary index of visited pages and links")
	crawlCmd.Flags().Bool("expand-sitemaps", false, "probe each seed's sitemap.xml / robots.txt before crawling")
	crawlCmd.Flags().Int("max-retries", 0, "fetch retry attempts on transient transport errors")
	crawlCmd.Flags().Duration("shutdown-grace-period", 0, "time allowed for in-flight work to drain after SIGINT/SIGTERM")
	crawlCmd.Flags().Int("max-pages", 0, "cap on successful fetches for this run (0 = unbounded)")
	crawlCmd.Flags().Duration("max-duration", 0, "wall-clock time cap for this run (0 = unbounded)")
	crawlCmd.Flags().String("email", "", "contact email embedded in the User-Agent string")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.SeedFile == "" {
		return fmt.Errorf("crawl: --seed-file is required")
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := context.Background()

	// A fresh crawl starts from an empty seen-set — see SPEC_FULL.md
	// Open Question decision 2. resume does not take this branch.
	if err := rt.seen.Reset(ctx); err != nil {
		return fmt.Errorf("crawl: reset seen-set: %w", err)
	}

	if cfg.ExcludeFile != "" {
		excludes, err := loadExcludes(cfg.ExcludeFile)
		if err != nil {
			return err
		}
		for _, domain := range excludes {
			if err := rt.store.MarkExcluded(ctx, domain); err != nil {
				return fmt.Errorf("crawl: mark excluded %q: %w", domain, err)
			}
		}
		rt.logger.Info("loaded manual exclusions", zap.Int("count", len(excludes)), zap.String("file", cfg.ExcludeFile))
	}

	seeds, err := loadSeeds(cfg.SeedFile)
	if err != nil {
		return err
	}
	if cfg.ExpandSitemaps {
		loader := seedloader.New(rt.http, rt.logger, 0)
		seeds = loader.ExpandSitemaps(ctx, seeds)
	}
	if len(seeds) == 0 {
		return fmt.Errorf("crawl: no seed URLs after loading %s", cfg.SeedFile)
	}

	result, err := rt.frontMg.AddURLsBatch(ctx, seeds, 0, true)
	if err != nil {
		return fmt.Errorf("crawl: seed frontier: %w", err)
	}
	rt.logger.Info("seeded frontier", zap.Int("accepted", result.Accepted), zap.Int("submitted", len(seeds)))

	rt.runWorkers(ctx)

	snap := rt.counters.Snapshot()
	fmt.Printf("\nCrawl completed!\n")
	fmt.Printf("Fetched: %d, Parsed: %d, Links found: %d\n", snap.Fetched, snap.PagesParsed, snap.LinksFound)
	return nil
}

func loadSeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("crawl: open seed file: %w", err)
	}
	defer f.Close()
	return seedloader.LoadSeedFile(bufio.NewScanner(f)), nil
}

// loadExcludes reads the manual-exclusion file named by §6's
// exclude_file option: one domain per line, "#"-prefixed comments and
// surrounding whitespace ignored (§4.2 "Manual exclusions"). Reuses
// seedloader.LoadSeedFile's scanner, which already implements exactly
// that trim/skip-comment handling for the seed file's identical format.
func loadExcludes(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("crawl: open exclude file: %w", err)
	}
	defer f.Close()
	return seedloader.LoadSeedFile(bufio.NewScanner(f)), nil
}
