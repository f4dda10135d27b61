// Command parseworker is a thin entrypoint for running the parse
// worker as its own process (§4.4), separate from the fetch pool.
// It shares internal/cli's command tree but defaults to the
// "parse-worker" subcommand when invoked with no arguments.
package main

import (
	"fmt"
	"os"

	"github.com/politeweb/crawler/internal/cli"
)

func main() {
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "parse-worker")
	}
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
