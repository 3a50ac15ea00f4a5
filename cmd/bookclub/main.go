// Command bookclub is the operator command line of the lending core.
package main

import (
	"context"
	"os"

	"bookclub/internal/cli"

	"github.com/charmbracelet/fang"
)

var version = "dev"

func main() {
	root := cli.NewRootCmd()
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
