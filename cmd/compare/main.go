// Command compare prints a side-by-side product comparison from catalog and
// policy files, the way the storefront widget would render it.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
