// Package main provides the entry point for the aro CLI.
package main

import (
	"os"

	"github.com/arolang/aro/cmd/aro/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
