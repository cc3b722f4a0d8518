package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/camuig/etf-rotator/internal/ai"
	"github.com/camuig/etf-rotator/internal/eastmoney"
	"github.com/camuig/etf-rotator/internal/scheduler"
	"github.com/camuig/etf-rotator/internal/telegram"
	"github.com/camuig/etf-rotator/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the data refresh loop and the web dashboard",
	Long: `Run as a long-lived service: periodically refresh daily bars, advance
the paper account through any pending weekly rebalances with Telegram
notifications, and serve the dashboard plus Prometheus metrics over
HTTP.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, repo, err := setup()
	if err != nil {
		return err
	}
	log.Info("starting etf-rotator", "account", cfg.Paper.AccountName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dataClient := eastmoney.NewClient(log)
	aiClient := ai.NewDeepSeekClient(cfg, log)
	notifier := telegram.NewNotifier(cfg, log)
	sched := scheduler.NewScheduler(dataClient, aiClient, repo, notifier, cfg, log)
	webServer := web.NewServer(repo, cfg, log)

	go sched.Run(ctx)

	go func() {
		if err := webServer.Start(); err != nil {
			log.Error("web server error", "error", err)
		}
	}()

	notifier.NotifyStatus(fmt.Sprintf("🔁 ETF 轮动服务已启动 (账户 %s)", cfg.Paper.AccountName))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", "signal", sig.String())

	cancel() // stop scheduler

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error("web server shutdown error", "error", err)
	}

	notifier.NotifyStatus("🛑 ETF 轮动服务已停止")
	log.Info("etf-rotator stopped")
	return nil
}
