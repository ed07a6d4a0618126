// Package main is the entry point for the minidb CLI binary.
package main

import (
	"os"

	"mit.edu/dsg/minidb/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
