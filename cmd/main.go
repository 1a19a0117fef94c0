// Package main is the entry point for TomatoClock.
package main

import (
	"fmt"
	"os"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tomatoclock: %v\n", err)
		os.Exit(1)
	}
}
