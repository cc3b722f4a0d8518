package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const klineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"

// Bar is one daily OHLCV bar.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Amount float64
}

type klineResponse struct {
	Data struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// secID maps an ETF code to Eastmoney's market-prefixed id: Shanghai
// funds (5xxxxx) and 6xxxxx listings are market 1, everything else
// (Shenzhen 1xxxxx/0xxxxx/3xxxxx) is market 0.
func secID(symbol string) string {
	if strings.HasPrefix(symbol, "5") || strings.HasPrefix(symbol, "6") {
		return "1." + symbol
	}
	return "0." + symbol
}

// FetchDaily pulls forward-adjusted daily bars for one symbol in
// [start, end]. A zero end means "up to today".
func (c *Client) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	endStr := "20500101"
	if !end.IsZero() {
		endStr = end.Format("20060102")
	}

	q := url.Values{}
	q.Set("secid", secID(symbol))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")
	q.Set("klt", "101") // daily
	q.Set("fqt", "1")   // forward-adjusted
	q.Set("beg", start.Format("20060102"))
	q.Set("end", endStr)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, klineURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eastmoney returned status %d for %s", resp.StatusCode, symbol)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var kr klineResponse
	if err := json.Unmarshal(body, &kr); err != nil {
		return nil, fmt.Errorf("parse kline response for %s: %w", symbol, err)
	}

	bars := make([]Bar, 0, len(kr.Data.Klines))
	for _, line := range kr.Data.Klines {
		bar, ok := parseKline(line)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// parseKline decodes "date,open,close,high,low,volume,amount".
func parseKline(line string) (Bar, bool) {
	parts := strings.Split(line, ",")
	if len(parts) < 7 {
		return Bar{}, false
	}
	date, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return Bar{}, false
	}
	open := parseFloat(parts[1])
	cls := parseFloat(parts[2])
	high := parseFloat(parts[3])
	low := parseFloat(parts[4])
	volume := parseFloat(parts[5])
	amount := parseFloat(parts[6])
	if cls == 0 {
		return Bar{}, false
	}
	return Bar{
		Date:   date.UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  cls,
		Volume: volume,
		Amount: amount,
	}, true
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// FetchDailyRetry retries FetchDaily with a fixed wait between attempts.
func (c *Client) FetchDailyRetry(ctx context.Context, symbol string, start, end time.Time, attempts int, wait time.Duration) ([]Bar, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		bars, err := c.FetchDaily(ctx, symbol, start, end)
		if err == nil {
			return bars, nil
		}
		lastErr = err
		c.logger.Warn("fetch attempt failed", "symbol", symbol, "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("fetch %s after %d attempts: %w", symbol, attempts, lastErr)
}
