package main

import (
	"fmt"
	"net"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Exposes dialogues as a JSON API over HTTP, with turn events streamed as SSE.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			app.Config.HTTP.Addr = addr
		}
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		if err := app.Ping(ctx); err != nil {
			return err
		}
		ln, err := net.Listen("tcp", app.Config.HTTP.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", app.Config.HTTP.Addr, err)
		}
		err = cli.Serve(ctx, app, ln)
		if sig := ctx.Signal(); sig != nil {
			app.Logger.Info("server stopped", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides http.addr)")
}
