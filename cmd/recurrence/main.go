package main

import (
	"os"

	"github.com/ItsMattG/property-tracker-sub002/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
