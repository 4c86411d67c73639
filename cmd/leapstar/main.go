// Package main provides the leapstar command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/leapstar/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
