package main

import (
	"os"

	"github.com/devinsight/devinsight/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
