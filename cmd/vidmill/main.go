// Package main is the entry point for the vidmill application.
package main

import (
	"os"

	"github.com/vidmill/vidmill/cmd/vidmill/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
