// Command coursenotify runs the course notification engine and its tools.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/coursenotify/internal/cli"
	"github.com/roach88/coursenotify/internal/config"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
