package main

import (
	"os"

	"jabbusiness-client-go/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
