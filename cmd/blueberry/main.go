package main

import (
	"os"

	"github.com/yanniedog/blueberry/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
