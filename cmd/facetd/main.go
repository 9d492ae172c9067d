// Facetd is the custom-fields service of a bookmark manager.
package main

import (
	"fmt"
	"os"

	"github.com/mesh-intelligence/facets/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
