// Package main is the entry point for sharemeow. Commands are defined in
// internal/cli; "sharemeow serve" runs the HTTP server.
package main

import (
	"os"

	"sharemeow/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
