/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jacobarthurs/pgreview/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve configuration, checks, history and export over HTTP.

Batches submitted over HTTP run in the background; poll
/api/check/progress/{batch_id} for their state. Prometheus metrics are
exposed at /metrics.`,
	Example: `  pgreview serve
  pgreview serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return withApp(cmd, func(_ context.Context, a *app) error {
			addr := a.cfg.Server.Addr
			if cmd.Flags().Changed("addr") {
				addr, _ = cmd.Flags().GetString("addr")
			}

			srv := server.New(a.store, a.checker, a.cipher, a.sources, a.logger)
			return srv.ListenAndServe(ctx, addr, a.cfg.Server.CORSOrigins)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
