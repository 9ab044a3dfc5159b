// Command editions creates and operates NFT editions backed by an
// append-only SQLite ledger.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/editions/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
