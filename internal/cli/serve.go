package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bankdash/internal/app"
	apierrors "bankdash/internal/errors"
)

// NewServeCommand creates the command that runs the HTTP API.
func NewServeCommand(load configLoader) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until interrupted. Configuration comes from defaults,
config.yaml and BANKDASH_* environment variables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return apierrors.NewConfigError("failed to load configuration", err)
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			application, err := app.NewApplication(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
