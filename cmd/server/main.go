// Package main is the entry point for the portfolio optimization intake service.
// The service collects a candidate portfolio (securities with weight bounds and sectors),
// an optimization method with its parameters and an optional price history CSV, validates
// them and hands the assembled request to the optimization backend.
//
// Running the binary without arguments serves the HTTP API; see --help for the
// offline check-csv and validate commands.
package main

import (
	"os"

	"github.com/aristath/portfolio-intake/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
