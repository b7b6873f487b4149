package main

import (
	"os"

	"github.com/campusbook/scheduling-engine/cmd/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
