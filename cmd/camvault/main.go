// Package main is the entry point for the camvault application.
package main

import (
	"os"

	"github.com/jmylchreest/camvault/cmd/camvault/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
