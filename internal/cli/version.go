package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bankdash/pkg/contracts"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), contracts.GetFullVersionString())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stage %s, api %s\n", contracts.VersionStage, contracts.APIVersion)
		},
	}
}
