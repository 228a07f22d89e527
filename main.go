package main

import (
	"context"
	"os"

	"github.com/deadline-guardian/guardian/pkg/cli"
)

// version is overridden with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := cli.Run(context.Background(), os.Args, version); err != nil {
		os.Exit(1)
	}
}
