package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/camuig/etf-rotator/internal/config"
	"github.com/camuig/etf-rotator/internal/logger"
	"github.com/camuig/etf-rotator/internal/paper"
)

const systemPrompt = "You are a concise portfolio assistant. Given a weekly ETF rotation plan " +
	"(regime, drawdown, momentum winner, weight changes), write a 2-3 sentence plain-language " +
	"summary for the account owner. Do not give investment advice beyond describing the plan."

// DeepSeekClient produces an optional natural-language commentary for the
// weekly plan notification. It never participates in the decision itself.
type DeepSeekClient struct {
	client  *openai.Client
	model   string
	cfg     *config.Config
	logger  *logger.Logger
	enabled bool
}

func NewDeepSeekClient(cfg *config.Config, log *logger.Logger) *DeepSeekClient {
	if !cfg.DeepSeek.Enabled {
		return &DeepSeekClient{enabled: false, logger: log}
	}

	ocfg := openai.DefaultConfig(cfg.DeepSeek.APIKey)
	ocfg.BaseURL = "https://api.deepseek.com/v1"

	return &DeepSeekClient{
		client:  openai.NewClientWithConfig(ocfg),
		model:   cfg.DeepSeek.Model,
		cfg:     cfg,
		logger:  log,
		enabled: true,
	}
}

// PlanCommentary returns "" when the client is disabled.
func (d *DeepSeekClient) PlanCommentary(ctx context.Context, plan *paper.Plan) (string, error) {
	if !d.enabled {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.DeepSeekTimeout())
	defer cancel()

	var b strings.Builder
	fmt.Fprintf(&b, "Trade date: %s (signal %s)\n",
		plan.TradeDate.Format("2006-01-02"), plan.SignalDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Regime: %s, drawdown %.2f%%, cooldown left %d\n",
		plan.Regime, plan.Drawdown*100, plan.CooldownLeft)
	fmt.Fprintf(&b, "Momentum winner: %s\n", plan.Winner)
	for _, line := range plan.Lines {
		fmt.Fprintf(&b, "%s: weight %.1f%% -> %.1f%%, shares %d -> %d\n",
			line.Symbol, line.CurrentWeight*100, line.TargetWeight*100,
			line.CurrentShares, line.TargetShares)
	}

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("deepseek API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("deepseek returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
