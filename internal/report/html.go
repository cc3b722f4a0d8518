package report

import (
	"fmt"
	"html/template"
	"math"
	"os"
	"strings"

	"github.com/camuig/etf-rotator/internal/backtest"
	"github.com/camuig/etf-rotator/internal/market"
)

const htmlTemplate = `<!doctype html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-top: 1em; }
td, th { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #f4f4f4; }
svg { margin-top: 1.5em; border: 1px solid #ddd; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Placeholder}}
<p>数据点不足（需要至少2个净值点才能生成收益率与统计）。</p>
{{else}}
<table>
<tr><th>CAGR</th><td>{{printf "%.2f%%" .CAGRPct}}</td></tr>
<tr><th>Total Return</th><td>{{printf "%.2f%%" .TotalReturnPct}}</td></tr>
<tr><th>Max Drawdown</th><td>{{printf "%.2f%%" .MaxDrawdownPct}}</td></tr>
<tr><th>Sharpe (daily, ann.)</th><td>{{.SharpeText}}</td></tr>
<tr><th>Avg Weekly One-Way Turnover</th><td>{{printf "%.2f%%" .TurnoverPct}}</td></tr>
<tr><th>Estimated Total Cost</th><td>{{printf "%.2f" .TotalCost}}</td></tr>
</table>
<svg viewBox="0 0 800 300" width="800" height="300" xmlns="http://www.w3.org/2000/svg">
<polyline fill="none" stroke="#2266cc" stroke-width="1.5" points="{{.Points}}"/>
</svg>
{{end}}
</body>
</html>
`

type htmlData struct {
	Title          string
	Placeholder    bool
	CAGRPct        float64
	TotalReturnPct float64
	MaxDrawdownPct float64
	SharpeText     string
	TurnoverPct    float64
	TotalCost      float64
	Points         string
}

// WriteHTML renders a self-contained summary page: a stats table and an
// inline SVG of the equity curve. With fewer than two points it renders a
// placeholder instead, which happens on a paper account's first week.
func WriteHTML(path, title string, equity []market.Point, stats backtest.Stats) error {
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data := htmlData{Title: title, Placeholder: len(equity) < 2}
	if !data.Placeholder {
		data.CAGRPct = stats.CAGR * 100
		data.TotalReturnPct = stats.TotalReturn * 100
		data.MaxDrawdownPct = stats.MaxDrawdown * 100
		data.TurnoverPct = stats.AvgWeeklyTurnoverOneWay * 100
		data.TotalCost = stats.EstimatedTotalCost
		if math.IsNaN(stats.Sharpe) {
			data.SharpeText = "n/a"
		} else {
			data.SharpeText = fmt.Sprintf("%.2f", stats.Sharpe)
		}
		data.Points = svgPoints(equity, 800, 300)
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return tmpl.Execute(f, data)
}

// svgPoints scales the curve into the viewport with a small margin.
func svgPoints(equity []market.Point, width, height float64) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range equity {
		if p.Value < lo {
			lo = p.Value
		}
		if p.Value > hi {
			hi = p.Value
		}
	}
	if hi <= lo {
		hi = lo + 1
	}
	const margin = 10.0
	var b strings.Builder
	for i, p := range equity {
		x := margin + (width-2*margin)*float64(i)/float64(len(equity)-1)
		y := height - margin - (height-2*margin)*(p.Value-lo)/(hi-lo)
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}
	return b.String()
}
