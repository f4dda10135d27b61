package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var parseWorkerCmd = &cobra.Command{
	Use:   "parse-worker",
	Short: "Run only the parse worker against an existing frontier",
	Long:  `Drains fetch:queue, extracts links from fetched HTML, and feeds them back into the frontier, without running any fetch workers of its own. Intended to run as a separate process alongside "crawl" or "resume" (§4.4).`,
	RunE:  runParseWorker,
}

func init() {
	parseWorkerCmd.Flags().String("data-dir", "", "directory holding the crawl's JSONL archive and SQLite index")
	parseWorkerCmd.Flags().Int("parse-workers", 0, "parse worker pool size")
	parseWorkerCmd.Flags().String("redis-host", "", "Redis host")
	parseWorkerCmd.Flags().Int("redis-port", 0, "Redis port")
	parseWorkerCmd.Flags().Int("redis-db", 0, "Redis logical DB index")
	parseWorkerCmd.Flags().String("log-level", "", "zap log level (debug/info/warn/error)")
	parseWorkerCmd.Flags().Bool("enable-sqlite", false, "maintain a SQLite secondary index of visited pages and links")
}

func runParseWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.runParseWorkerOnly(context.Background())

	snap := rt.counters.Snapshot()
	fmt.Printf("\nParse worker stopped.\n")
	fmt.Printf("Parsed: %d, Links found: %d\n", snap.PagesParsed, snap.LinksFound)
	return nil
}
