// Package main provides the relsplit command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/relsplit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
