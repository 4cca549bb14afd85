// ABOUTME: This file is the cafe24ctl CLI entry point
// ABOUTME: Command failures are mapped onto documented process exit codes
package main

import (
	"fmt"
	"os"

	"cafe24-admin/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	err := cli.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.ExitCode(err))
}
