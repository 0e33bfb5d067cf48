// Package main is the entry point for the panelpilot CLI.
package main

import (
	"os"

	"github.com/PanelPilot/PanelPilot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
