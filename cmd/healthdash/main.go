package main

import (
	"os"

	"github.com/healthdash/backend/cmd/healthdash/commands"
)

// main is the entry point for the healthdash CLI
// ⭐ single CLI entry point: go run ./cmd/healthdash [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
