package main

import (
	"os"

	"github.com/solatis/wordloom/cmd/wordloom/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
