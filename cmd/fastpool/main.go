// Command fastpool is the CLI entry point: it wires internal/cli's Cobra
// command tree to build-time version metadata and a top-level panic
// recovery boundary, the same shape as the teacher's cmd/queue/main.go.
package main

import (
	"fmt"
	"os"

	"github.com/AlvaroMS25/fast-pool/internal/cli"
)

// Build-time version injection via ldflags, e.g.
// go build -ldflags "-X main.version=1.0.0"
var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := cli.BuildCLI()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
