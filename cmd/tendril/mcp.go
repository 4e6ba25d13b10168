package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the engine as an MCP Server, so AI agents can hold dialogues
by sending P-expressions as tool calls.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		srv := mcp.NewServer(app.Manager, mcp.WithLogger(app.Logger))
		switch transport {
		case "stdio":
			app.Logger.Info("starting mcp server (stdio)")
			return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
		case "sse":
			return srv.ServeSSE(ctx, addr, app.Config.HTTP.ShutdownTimeout)
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
}
