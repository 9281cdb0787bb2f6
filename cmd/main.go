// Package main is the entry point of the tunecore command.
//
// Build:
//
//	go build -o build/tunecore ./cmd
package main

import (
	"log/slog"
	"os"

	"github.com/tejashwikalptaru/tunecore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
