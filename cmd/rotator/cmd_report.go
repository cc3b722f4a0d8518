package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/camuig/etf-rotator/internal/backtest"
	"github.com/camuig/etf-rotator/internal/market"
	"github.com/camuig/etf-rotator/internal/report"
)

var (
	reportSource string
	reportOutDir string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Re-render the HTML report from a stored equity curve",
	Long: `Rebuild the HTML report without re-running anything. The backtest
source reads the equity.csv written by a previous backtest run; the
paper source reads the account's persisted equity history from the
database.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportSource, "source", "paper", "equity source: backtest or paper")
	reportCmd.Flags().StringVar(&reportOutDir, "out", "", "output directory (default from config)")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, log, repo, err := setup()
	if err != nil {
		return err
	}

	outDir := reportOutDir
	if outDir == "" {
		outDir = cfg.Report.OutputDir
	}

	var (
		equity []market.Point
		title  string
		name   string
	)
	switch reportSource {
	case "backtest":
		equity, err = report.ReadEquityCSV(filepath.Join(outDir, "equity.csv"))
		if err != nil {
			return err
		}
		title, name = "ETF 轮动回测", "report.html"
	case "paper":
		account, ok, err := repo.Load(cfg.Paper.AccountName)
		if err != nil {
			return err
		}
		if !ok || len(account.History) == 0 {
			return fmt.Errorf("paper account %q has no equity history", cfg.Paper.AccountName)
		}
		equity = account.History
		title, name = "ETF 轮动模拟盘", "paper.html"
	default:
		return fmt.Errorf("unknown report source %q (want backtest or paper)", reportSource)
	}

	stats := backtest.ComputeStats(equity, nil, cfg.Project.InitialCapital)
	path := filepath.Join(outDir, name)
	if err := report.WriteHTML(path, title, equity, stats); err != nil {
		return err
	}
	log.Info("report written", "source", reportSource, "path", path, "points", len(equity))
	return nil
}
