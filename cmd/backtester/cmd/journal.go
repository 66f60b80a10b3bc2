package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the run journal",
	Long: `Query and display backtest runs recorded in the SQLite journal.

Subcommands:
  runs     - List recorded runs, newest first
  holdings - Print the holdings history of a run
  report   - Print an Org-mode summary of a run

Examples:
  backtester journal runs
  backtester journal holdings <run-id>
  backtester journal report <run-id>`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalHoldingsCmd = &cobra.Command{
	Use:   "holdings <run-id>",
	Short: "Print the holdings history of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalHoldings,
}

var journalReportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Print an Org-mode summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalReport,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalHoldingsCmd)
	journalCmd.AddCommand(journalReportCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./backtest.db", "path to SQLite journal DB")
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tSTRATEGY\tSYMBOLS\tCYCLES\tRETURN\tSHARPE\tMAX DD")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%d\t%.2f%%\t%.2f\t%.2f%%\n",
			r.RunID, r.Created.Format(time.DateTime), r.Strategy, r.Symbols, r.Cycles,
			r.TotalReturn*100, r.Sharpe, r.MaxDrawdown*100)
	}
	return tw.Flush()
}

func runJournalHoldings(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	run, err := j.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	hist, err := j.ListHoldings(cmd.Context(), run.RunID)
	if err != nil {
		return fmt.Errorf("list holdings: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "TIME\t")
	for _, s := range run.Symbols {
		fmt.Fprintf(tw, "%s\t", s)
	}
	fmt.Fprintln(tw, "CASH\tCOMMISSION\tTOTAL\tRETURNS\tEQUITY CURVE\t")
	for _, h := range hist {
		fmt.Fprintf(tw, "%s\t", h.Time.Format(time.DateOnly))
		for _, s := range run.Symbols {
			fmt.Fprintf(tw, "%.2f\t", h.Values[s])
		}
		fmt.Fprintf(tw, "%.2f\t%.2f\t%.2f\t%.6f\t%.6f\t\n",
			h.HeldCash, h.Commission, h.TotalHoldings, h.Returns, h.EquityCurve)
	}
	return tw.Flush()
}

func runJournalReport(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	run, err := j.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fills, err := j.ListFills(cmd.Context(), run.RunID)
	if err != nil {
		return fmt.Errorf("list fills: %w", err)
	}

	org, err := journal.FormatRunOrg(run, fills)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), org)
	return nil
}
