package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tauflow/internal/logging"
)

var (
	logLevel string
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "tauflow",
	Short: "Tau identification feature pipeline",
	Long: `tauflow fits preprocessing rules on labeled tau samples, exports them as
lwtnn variable specifications and decorates sharded tables with classifier scores.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.InitFromEnv()
		if cmd.Flags().Changed("log-level") || cmd.Flags().Changed("log-json") {
			logging.Configure(logging.Options{Level: logLevel, JSON: logJSON})
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit JSON logs")

	rootCmd.AddCommand(decorateCmd)
	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(varspecCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.L().Error("tauflow", "err", err)
		stop()
		os.Exit(1)
	}
}
