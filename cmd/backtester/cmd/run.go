package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest from a config file",
	Long: `Run a backtest using settings from a configuration file.

The config file names the data directory and symbols, the strategy, the
sizing and commission models and where to journal the run. BACKTEST_LOG_LEVEL,
BACKTEST_JOURNAL_DB and BACKTEST_DATA_DIR (from the environment or a .env
file) override the file.

Example:
  backtester run -f backtest.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "file", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()

	log := newLogger(cmd, cfg.Log.Level, cfg.Log.Pretty)
	log.Info().Str("config", runConfigPath).Msg("loaded config")

	res, err := backtest.RunConfig(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}

	backtest.PrintResult(cmd.OutOrStdout(), res)
	return nil
}
