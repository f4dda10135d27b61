package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/politeweb/crawler/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export-sitemap",
	Short: "Export successfully-crawled pages as an XML sitemap",
	Long:  `Reads the content store's JSONL archive and writes the status-200 subset as a sitemaps.org-format XML file.`,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().String("data-dir", "./data", "directory holding the crawl's JSONL archive")
	exportCmd.Flags().String("output", "sitemap.xml", "output sitemap file path")
	exportCmd.Flags().Bool("include-lastmod", true, "include <lastmod> per URL")
	exportCmd.Flags().Bool("include-changefreq", false, "include <changefreq> per URL")
	exportCmd.Flags().Float64("default-priority", 0.5, "default <priority> value")
}

func runExport(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	output, _ := cmd.Flags().GetString("output")
	includeLastmod, _ := cmd.Flags().GetBool("include-lastmod")
	includeChangefreq, _ := cmd.Flags().GetBool("include-changefreq")
	defaultPriority, _ := cmd.Flags().GetFloat64("default-priority")

	count, err := export.ExportSitemap(export.Config{
		DataDir:           dataDir,
		OutputFile:        output,
		IncludeLastmod:    includeLastmod,
		IncludeChangefreq: includeChangefreq,
		DefaultPriority:   defaultPriority,
	})
	if err != nil {
		return fmt.Errorf("export-sitemap: %w", err)
	}

	fmt.Printf("Wrote %d URLs to %s\n", count, output)
	return nil
}
