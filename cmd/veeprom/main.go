// Command veeprom emulates an EEPROM on a flash image file.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/veeprom/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
