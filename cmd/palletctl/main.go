// Command palletctl drives the metered template pallet from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
