package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/camuig/etf-rotator/internal/config"
	"github.com/camuig/etf-rotator/internal/logger"
	"github.com/camuig/etf-rotator/internal/paper"
)

type Notifier struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	enabled bool
	logger  *logger.Logger
}

func NewNotifier(cfg *config.Config, log *logger.Logger) *Notifier {
	if !cfg.Telegram.Enabled {
		return &Notifier{enabled: false, logger: log}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return &Notifier{
		bot:     bot,
		chatID:  cfg.Telegram.ChatID,
		enabled: true,
		logger:  log,
	}
}

func (n *Notifier) NotifyRebalance(res *paper.AdvanceResult) {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Rebalance %s*\n", res.TradeDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Regime: %s | Winner: %s | Drawdown: %.2f%%\n",
		res.Decision.Regime, res.Decision.Winner, res.Decision.Drawdown*100)
	fmt.Fprintf(&b, "Value: %.2f → %.2f | Cash: %.2f\n", res.PreValue, res.PostValue, res.Account.Cash)
	for _, row := range res.Blotter {
		if row.DeltaShares == 0 && row.TargetShares == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s %s %+d @ %.3f\n", row.Action, row.Symbol, row.DeltaShares, row.ReferencePrice)
	}
	n.send(b.String())
}

func (n *Notifier) NotifyPlan(plan *paper.Plan, commentary string) {
	var b strings.Builder
	fmt.Fprintf(&b, "🗓 *Plan for %s* (signal %s)\n",
		plan.TradeDate.Format("2006-01-02"), plan.SignalDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Regime: %s | Winner: %s | Drawdown: %.2f%%\n",
		plan.Regime, plan.Winner, plan.Drawdown*100)
	for _, line := range plan.Lines {
		fmt.Fprintf(&b, "%s: %d → %d shares (w %.1f%% → %.1f%%)\n",
			line.Symbol, line.CurrentShares, line.TargetShares,
			line.CurrentWeight*100, line.TargetWeight*100)
	}
	if commentary != "" {
		fmt.Fprintf(&b, "\n%s", commentary)
	}
	n.send(b.String())
}

func (n *Notifier) NotifyError(context string, err error) {
	n.send(fmt.Sprintf("⚠️ *Error* [%s]\n%v", context, err))
}

func (n *Notifier) NotifyStatus(message string) {
	n.send(message)
}

func (n *Notifier) send(text string) {
	if !n.enabled {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "error", err)
	}
}
