// Command scrappr ranks a local notes export against a query from the
// terminal, using the same engine and configuration as the suggestion
// service.
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
