// Command dap4 compiles DAP4 constraint expressions and writes chunked
// DAP4 responses.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/dap4/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil && !cli.IsReported(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
