// Package main is the entry point for the matali CLI.
package main

import (
	"os"

	"matali-pricing/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
