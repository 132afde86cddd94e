package main

import (
	"fmt"
	"os"

	"github.com/rcarvalho-pb/tipbot-go/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
