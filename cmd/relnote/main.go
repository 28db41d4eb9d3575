package main

import (
	"os"

	"github.com/dshills/relnote/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
