package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/camuig/etf-rotator/internal/backtest"
	"github.com/camuig/etf-rotator/internal/report"
)

var backtestOutDir string

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the rotation strategy over stored history",
	Long: `Simulate the weekly rotation over every stored trading day with
continuous weights, print the summary statistics and write the equity
curve, the rebalance ledger and an HTML report to the output directory.`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().StringVar(&backtestOutDir, "out", "", "output directory (default from config)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, log, repo, err := setup()
	if err != nil {
		return err
	}

	table, err := loadTable(cfg, repo)
	if err != nil {
		return err
	}

	res, err := backtest.Run(table, backtestConfig(cfg), log)
	if err != nil {
		return err
	}

	printStats(res.Stats, len(res.Equity), len(res.Records))

	outDir := backtestOutDir
	if outDir == "" {
		outDir = cfg.Report.OutputDir
	}
	if err := report.WriteEquityCSV(filepath.Join(outDir, "equity.csv"), res.Equity); err != nil {
		return err
	}
	if err := report.WriteRebalancesCSV(filepath.Join(outDir, "rebalances.csv"), res.Records); err != nil {
		return err
	}
	if err := report.WriteHTML(filepath.Join(outDir, "report.html"), "ETF 轮动回测", res.Equity, res.Stats); err != nil {
		return err
	}
	log.Info("backtest report written", "dir", outDir)
	return nil
}

func printStats(s backtest.Stats, days, rebalances int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Trading days\t%d\n", days)
	fmt.Fprintf(w, "Rebalances\t%d\n", rebalances)
	fmt.Fprintf(w, "Total return\t%.2f%%\n", s.TotalReturn*100)
	fmt.Fprintf(w, "CAGR\t%.2f%%\n", s.CAGR*100)
	fmt.Fprintf(w, "Max drawdown\t%.2f%%\n", s.MaxDrawdown*100)
	fmt.Fprintf(w, "Sharpe\t%.2f\n", s.Sharpe)
	fmt.Fprintf(w, "Avg weekly one-way turnover\t%.2f%%\n", s.AvgWeeklyTurnoverOneWay*100)
	fmt.Fprintf(w, "Estimated total cost\t%.2f\n", s.EstimatedTotalCost)
	fmt.Fprintf(w, "Cost / initial capital\t%.3f%%\n", s.EstimatedCostPctInitial*100)
	fmt.Fprintf(w, "Cost / gross traded\t%.3f%%\n", s.EstimatedCostOverGross*100)
	w.Flush()
}
