package main

import (
	"os"

	"github.com/runnerr0/trail/internal/cli"
)

// Set with -ldflags "-X main.version=..." at release time.
var version = "dev"

func main() {
	// The parser prints errors itself (goflags.PrintErrors).
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
