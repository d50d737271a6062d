package main

import (
	"os"

	"github.com/compozy/tdlimport/cli"
	"github.com/compozy/tdlimport/cli/helpers"
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.Execute(); err != nil {
		if !helpers.IsReported(err) {
			_ = helpers.NewOutputWriter(os.Stderr, helpers.OutputFormatText).WriteError(err)
		}
		os.Exit(1)
	}
}
