package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/camuig/etf-rotator/internal/eastmoney"
)

var updateCmd = &cobra.Command{
	Use:   "update-data",
	Short: "Fetch daily bars for the configured universe",
	Long: `Download daily candles for every configured ETF from the Eastmoney
kline endpoint and upsert them into the local database. Fetches are
incremental: symbols already present resume from their last stored bar.`,
	RunE: runUpdateData,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdateData(cmd *cobra.Command, args []string) error {
	cfg, log, repo, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := eastmoney.NewClient(log)
	if err := client.UpdateUniverse(ctx, repo, cfg.Symbols(),
		cfg.StartTime(), cfg.EndTime(),
		cfg.Data.RetryAttempts, cfg.RetryWait()); err != nil {
		return err
	}

	log.Info("universe updated", "symbols", len(cfg.Symbols()))
	return nil
}
