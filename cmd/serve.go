// -- cmd/serve.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgeqa/testforge/internal/observability"
	"github.com/forgeqa/testforge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session API server.",
	Long: `Starts the HTTP server that hosts browser sessions, page scanning,
and action execution for the visual test authoring UI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := server.NewServer(loadedConfig, observability.GetLogger())
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}
		return srv.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
