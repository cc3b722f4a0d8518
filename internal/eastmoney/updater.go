package eastmoney

import (
	"context"
	"fmt"
	"time"

	"github.com/camuig/etf-rotator/internal/storage"
)

// UpdateUniverse refreshes the local bar cache for every symbol,
// incrementally: each symbol is fetched from its newest cached bar
// onward, re-fetching that day so a revised close wins the upsert.
func (c *Client) UpdateUniverse(ctx context.Context, repo *storage.Repository, symbols []string, start, end time.Time, attempts int, wait time.Duration) error {
	for _, sym := range symbols {
		from := start
		if last, ok, err := repo.LastBarDate(sym); err != nil {
			return fmt.Errorf("last bar date for %s: %w", sym, err)
		} else if ok && last.After(from) {
			from = last
		}

		bars, err := c.FetchDailyRetry(ctx, sym, from, end, attempts, wait)
		if err != nil {
			return err
		}
		rows := make([]storage.PriceBar, 0, len(bars))
		for _, b := range bars {
			rows = append(rows, storage.PriceBar{
				Symbol: sym,
				Date:   b.Date,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
				Amount: b.Amount,
			})
		}
		if err := repo.SaveBars(rows); err != nil {
			return fmt.Errorf("save bars for %s: %w", sym, err)
		}
		c.logger.Info("bars updated", "symbol", sym, "rows", len(rows), "from", from.Format("2006-01-02"))
	}
	return nil
}
