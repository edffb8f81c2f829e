package main

import (
	"os"

	"dbfleet/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
