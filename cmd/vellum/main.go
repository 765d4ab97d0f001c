// Command vellum serves, pushes and renders live previews of frontend definitions.
package main

import (
	"fmt"
	"os"

	"vellum/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
