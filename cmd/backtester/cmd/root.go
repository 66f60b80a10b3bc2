package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "An event-driven portfolio backtester",
	Long: `Backtester replays historical daily bars through a strategy, a portfolio
and a simulated broker, one market event at a time.

It provides tools for:
  - Running backtests from a YAML or JSON config file
  - Generating and validating config files
  - Querying the run journal (runs, holdings history, Org reports)`,
	SilenceUsage: true,
}

var (
	logLevel  string
	logPretty bool
)

// Execute adds all child commands to the root command and sets flags appropriately.
// An interrupt cancels a running backtest.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "human readable console logs")
}

// newLogger builds the command logger. Flags win over cfgLevel.
func newLogger(cmd *cobra.Command, cfgLevel string, cfgPretty bool) zerolog.Logger {
	level := cfgLevel
	if logLevel != "" {
		level = logLevel
	}
	l := logger.New(logger.Config{
		Level:  level,
		Pretty: logPretty || cfgPretty,
		Out:    cmd.ErrOrStderr(),
	})
	logger.SetGlobalLogger(l)
	return l
}
