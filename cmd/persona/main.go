// Package main provides the entry point for the persona backend.
package main

import (
	"fmt"
	"os"

	"github.com/bakchod-ai/persona/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
