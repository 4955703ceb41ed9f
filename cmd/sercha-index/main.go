// Command sercha-index chunks, embeds and searches local documents.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/sercha-index/internal/adapters/driving/cli"
)

// Set by the linker.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
