package main

import (
	"os"

	"github.com/launchforge/launchforge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
