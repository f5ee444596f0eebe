// Package cli provides the bankdash command-line interface: the API server
// and the batch feature derivation tool.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bankdash/internal/config"
	"bankdash/pkg/contracts"
)

// NewRootCmd creates the bankdash root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   config.AppName,
		Short: "bankdash - customer portfolio analytics",
		Long: `bankdash ingests banking customer datasets (CSV or XLSX), derives
engineered features with narrative insights, and serves overview, outlier,
geography and correlation analyses over an HTTP API.`,
		Version:       contracts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: first config.yaml found)")

	load := func() (*config.Config, error) {
		if cfgFile != "" {
			return config.LoadFrom(cfgFile)
		}
		return config.Load()
	}

	rootCmd.AddCommand(NewServeCommand(load))
	rootCmd.AddCommand(NewFeaturizeCommand(load))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// Execute runs cmd and prints a failure to stderr.
func Execute(cmd *cobra.Command) error {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// configLoader resolves the effective configuration for a command
type configLoader func() (*config.Config, error)
