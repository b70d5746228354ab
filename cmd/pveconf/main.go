package main

import (
	"errors"
	"fmt"
	"os"
)

// Build-time variables (set with -ldflags "-X main.version=...")
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Findings were already printed.
		if !errors.Is(err, errValidationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
