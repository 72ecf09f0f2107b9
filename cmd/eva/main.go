package main

import (
	"os"

	"github.com/tatianab/eva-escape/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
