// Package main is the entry point for the taskctl CLI tool.
package main

import (
	"os"

	"github.com/nulltasker/nulltasker/cmd/taskctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
