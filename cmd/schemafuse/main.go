// Package main provides the entry point for the schemafuse CLI.
package main

import (
	"os"

	"github.com/queryforge/schemafuse/cmd/schemafuse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
