package main

import (
	"os"

	"freecrafter/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
