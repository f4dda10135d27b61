// Command crawler is the entrypoint for the crawl/resume/export-sitemap
// command tree in internal/cli.
package main

import (
	"fmt"
	"os"

	"github.com/politeweb/crawler/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
