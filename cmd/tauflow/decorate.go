package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tauflow/internal/engine"
	"tauflow/internal/logging"
)

var decorateMetricsPort int

// decorateCmd runs a decoration run spec to completion.
var decorateCmd = &cobra.Command{
	Use:   "decorate <run.yml>",
	Short: "Score every row of a sharded table",
	Long: `Compile the run spec, stream the selected rows through the feature groups,
the preprocessing rules and the model in fixed-size chunks, and hand the scores
to the configured sinks.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecorate,
}

func init() {
	decorateCmd.Flags().IntVar(&decorateMetricsPort, "metrics-port", 0, "Expose prometheus metrics on this port (0 = off)")
}

func runDecorate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := engine.Bootstrap(ctx, engine.Config{RunSpec: args[0], MetricsPort: decorateMetricsPort})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := e.Run(ctx); err != nil {
		return fmt.Errorf("decorate: %w", err)
	}
	logging.L().Info("decoration finished", "run_id", e.Runner().RunID())
	return nil
}
