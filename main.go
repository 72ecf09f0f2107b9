package main

import (
	"os"

	"github.com/tatianab/eva-escape/internal/cli"
)

// Running the module root with no arguments starts a game.
func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"play"}
	}
	if err := cli.ExecuteArgs(args); err != nil {
		os.Exit(1)
	}
}
