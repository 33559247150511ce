package main

import (
	"os"

	"github.com/luqian/astock-screener/cmd/astock/commands"
)

// main is the entry point for the screener CLI: astock [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
