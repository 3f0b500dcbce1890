// Command queuectl is the CLI front end for the job queue engine: it
// wraps store.Store, the executor, Worker and Supervisor behind the
// command surface.
package main

import (
	"fmt"
	"os"

	"github.com/anvorisk/queuectl/cmd/queuectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cmd.ExitCodeFor(err))
	}
}
