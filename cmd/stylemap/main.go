// Command stylemap validates and evaluates map style themes.
package main

import (
	"os"

	"github.com/quadtile/stylemap/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
