// Package main provides the lazyappwrite command.
package main

import (
	"os"

	"github.com/Ghunter254/lazy-appwrite/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
