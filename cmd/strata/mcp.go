package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stratadesk/strata"
	"github.com/stratadesk/strata/internal/logging"
	"github.com/stratadesk/strata/pkg/adapters/mcp"
	"github.com/stratadesk/strata/pkg/adapters/memory"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for agent clients",
	Long: `Starts an in-process navigation core and exposes it over the Model
Context Protocol. Defaults to stdio transport; use --sse for HTTP clients.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		useSSE, _ := cmd.Flags().GetBool("sse")
		port, _ := cmd.Flags().GetInt("port")

		// Stdio transport owns stdout, so logs must go to stderr only.
		logger := logging.NewJSON(slog.LevelInfo)

		sys := strata.New(
			strata.WithLogger(logger),
			strata.WithClusterStore(memory.NewClusterStore()),
			strata.WithMetaStore(memory.NewMetaStore()),
		)
		defer sys.Close()

		server := mcp.NewServer(sys.Bridge, sys.Graph, sys.Viewports, strata.Version)

		if useSSE {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ServeSSE(ctx, port)
		}
		return server.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().Bool("sse", false, "Serve over SSE instead of stdio")
	mcpCmd.Flags().IntP("port", "p", 8765, "Port for the SSE transport")
}
