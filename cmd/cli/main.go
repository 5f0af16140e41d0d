// Package main is the entry point for the apparel-pricing CLI.
package main

import (
	"fmt"
	"os"

	"apparel-pricing/cmd/cli/cmd"
	"apparel-pricing/internal/logging"
)

func main() {
	err := cmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
