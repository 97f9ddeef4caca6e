// Command taskplan builds deterministic task plan previews for commercial
// records from a CUE catalog of templates and rules.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/taskplan/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Formatted output already went to stdout; stderr gets the cause.
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
