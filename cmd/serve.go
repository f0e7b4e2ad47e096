package cmd

import (
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the search HTTP API",
		Long: `Starts the HTTP API on the configured port (MCP_PORT, PORT or
JOBMCP_SERVER_PORT, default 9000) and blocks until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			instance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return instance.Run(cmd.Context())
		},
	}
}
