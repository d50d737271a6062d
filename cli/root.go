// Package cli wires the tdlimport commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/compozy/tdlimport/cli/cmd/importcmd"
	"github.com/compozy/tdlimport/cli/cmd/serve"
	"github.com/compozy/tdlimport/cli/cmd/version"
)

// RootCmd returns the tdlimport command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tdlimport",
		Short:         "Load TDL task-list exports into a relational store",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := Bootstrap(cmd)
			if err != nil {
				return err
			}
			cmd.SetContext(ctx)
			return nil
		},
	}
	addPersistentFlags(root)
	root.AddCommand(
		importcmd.NewImportCommand(),
		serve.NewServeCommand(),
		version.NewVersionCommand(),
	)
	return root
}

func addPersistentFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.String("config", "tdlimport.yaml", "Path to the configuration file")
	f.String("env-file", ".env", "Path to the environment file")
	f.String("log-level", "", "Log level (debug, info, warn, error, disabled)")
	f.Bool("log-json", false, "Emit logs as JSON")
	f.Bool("log-source", false, "Include source locations in logs")
	f.String("driver", "", "Database driver (sqlite or postgres)")
	f.String("db-dir", "", "Directory holding sqlite destinations")
	f.Bool("reset", true, "Drop and recreate the destination before loading")
	f.String("dsn", "", "PostgreSQL connection string")
	f.String("precedence", "", "Representation that wins when a task has both attributes and field elements (attributes or elements)")
	f.Duration("timeout", 0, "Abort and roll back a run after this long (0 disables)")
}
