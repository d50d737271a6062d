// Package importcmd implements the import command.
package importcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/tdlimport/cli/helpers"
	"github.com/compozy/tdlimport/engine/ingest"
	"github.com/compozy/tdlimport/pkg/config"
	"github.com/compozy/tdlimport/pkg/logger"
)

const usage = "Usage: tdlimport import <tdl_file>"

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <tdl_file>",
		Short: "Import one TDL file into its destination",
		Long: `Decode a TDL file, derive the destination from its file name and load
every titled task with its categories in a single transaction.
Tasks without a title are skipped and logged.`,
		RunE: runImport,
	}
	cmd.Flags().Bool("dry-run", false, "Decode and count tasks without touching any store")
	cmd.Flags().StringP("format", "f", "", "Output format (text or json)")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	format, ferr := helpers.ParseOutputFormat(cfg.CLI.Format)
	if ferr != nil {
		format = helpers.OutputFormatText
	}
	out := helpers.NewOutputWriter(cmd.OutOrStdout(), format)
	errOut := helpers.NewOutputWriter(cmd.ErrOrStderr(), format)
	fail := func(err error) error {
		cliErr := helpers.Categorize(err)
		if werr := errOut.WriteError(cliErr); werr != nil {
			logger.FromContext(ctx).Error("Failed to write error", "error", werr)
		}
		return cliErr.MarkReported()
	}
	if ferr != nil {
		return fail(ferr)
	}
	if len(args) != 1 {
		return fail(helpers.NewUsageError(usage))
	}
	svc, err := ingest.NewServiceFromConfig(cfg, nil)
	if err != nil {
		return fail(helpers.NewCliError(helpers.CodeConfig, "Invalid configuration", err.Error()))
	}
	res, err := svc.RunFile(ctx, args[0], cfg.CLI.DryRun)
	if err != nil {
		return fail(err)
	}
	if err := out.WriteResult(res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
