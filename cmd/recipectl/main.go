// Command recipectl parses, migrates and previews recipe ingredient lists
// from the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
