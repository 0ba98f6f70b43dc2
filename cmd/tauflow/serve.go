package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tauflow/internal/engine"
)

var serveOpts struct {
	port        int
	metricsPort int
}

// serveCmd exposes a linear model over the inference transport.
var serveCmd = &cobra.Command{
	Use:   "serve <model.yml>",
	Short: "Serve a linear model over gRPC",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := engine.Bootstrap(ctx, engine.Config{
			ServePort:   serveOpts.port,
			ServeModel:  args[0],
			MetricsPort: serveOpts.metricsPort,
		})
		if err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		return e.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&serveOpts.port, "port", 7070, "gRPC listen port")
	serveCmd.Flags().IntVar(&serveOpts.metricsPort, "metrics-port", 0, "Expose prometheus metrics on this port (0 = off)")
}
