package main

import (
	"os"

	"github.com/wonny/ivix/cmd/ivix/commands"
)

// main is the entry point for the ivix CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/ivix [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
