// Command backorder is the service and operator CLI: start, migrate, seed,
// user and worker subcommands.
package main

import (
	"os"

	"github.com/Additional-Code/backorder/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
