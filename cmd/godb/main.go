// Command godb is the REPL / script driver for the storage engine: it
// loads a catalog rooted at a data directory and dispatches parsed
// statements to the row engine.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
