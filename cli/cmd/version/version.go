// Package version implements the version command.
package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/tdlimport/cli/helpers"
	"github.com/compozy/tdlimport/pkg/config"
	"github.com/compozy/tdlimport/pkg/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := helpers.ParseOutputFormat(config.FromContext(cmd.Context()).CLI.Format)
			if err != nil {
				return err
			}
			info := version.Get()
			if format == helpers.OutputFormatJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(info)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "tdlimport %s (commit %s, built %s, %s)\n",
				info.Version, info.CommitHash, info.BuildDate, info.GoVersion)
			return err
		},
	}
	cmd.Flags().StringP("format", "f", "", "Output format (text or json)")
	return cmd
}
