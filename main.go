package main

import (
	"os"

	"github.com/askmto/askmto/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
