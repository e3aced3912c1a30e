package main

import (
	"fmt"
	"os"

	"github.com/pulsemon/provision/internal/cli"
	"github.com/pulsemon/provision/internal/config"
)

func main() {
	if err := cli.NewRootCommand(config.Version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
