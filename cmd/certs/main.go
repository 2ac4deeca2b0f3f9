package main

import (
	"github.com/tycrek-archive/tycrek-certs-custom/internal/cli"
)

// version is set via ldflags at release time.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.Execute()
}
