package main

import (
	"os"

	"github.com/solatis/siren/cmd/siren/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
