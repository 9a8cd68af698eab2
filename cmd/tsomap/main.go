// Command tsomap answers TSO interconnection queries from the command line
// and serves the map API.
package main

import (
	"fmt"
	"os"
)

var version = "--- set from makefile ---"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
