// SpotCore runs the spot-the-difference reference game: a dialogue agent
// and a participant agree on which character stands where.
// Usage: spotcore [play|serve|check|version] [flags]
package main

import (
	"fmt"
	"os"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
