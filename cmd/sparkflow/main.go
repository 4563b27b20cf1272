package main

import (
	"os"

	"github.com/sparkflow-dev/sparkflow/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
