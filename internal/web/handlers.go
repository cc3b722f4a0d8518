package web

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/camuig/etf-rotator/internal/storage"
)

const dashboardTemplate = `<!doctype html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>ETF Rotator</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-top: 1em; }
td, th { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #f4f4f4; }
.regime { font-weight: bold; }
</style>
</head>
<body>
<h1>ETF Rotator · {{.AccountName}}</h1>
{{if .HasAccount}}
<p>As of {{.AsOf}} | Equity: {{printf "%.2f" .Equity}} | Cash: {{printf "%.2f" .Cash}} |
Peak: {{printf "%.2f" .EquityPeak}} | Regime: <span class="regime">{{.Regime}}</span></p>
<h2>Positions</h2>
<table>
<tr><th>Symbol</th><th>Shares</th></tr>
{{range $sym, $sh := .Positions}}<tr><td>{{$sym}}</td><td>{{$sh}}</td></tr>{{end}}
</table>
<h2>Recent blotter</h2>
<table>
<tr><th>Trade</th><th>Symbol</th><th>Action</th><th>Δ Shares</th><th>Price</th><th>Cost</th><th>Regime</th></tr>
{{range .Blotter}}<tr><td>{{.TradeDate.Format "2006-01-02"}}</td><td>{{.Symbol}}</td><td>{{.Action}}</td>
<td>{{.DeltaShares}}</td><td>{{printf "%.3f" .ReferencePrice}}</td><td>{{printf "%.2f" .EstimatedCost}}</td><td>{{.Regime}}</td></tr>{{end}}
</table>
{{else}}
<p>No paper account yet. Run the paper driver once to create it.</p>
{{end}}
</body>
</html>
`

type dashboardData struct {
	AccountName string
	HasAccount  bool
	AsOf        string
	Equity      float64
	Cash        float64
	EquityPeak  float64
	Regime      string
	Positions   map[string]int64
	Blotter     []storage.BlotterEntry
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	name := s.config.Paper.AccountName
	data := dashboardData{AccountName: name}

	account, ok, err := s.repo.Load(name)
	if err != nil {
		s.logger.Error("load account for dashboard", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if ok {
		data.HasAccount = true
		data.Cash = account.Cash
		data.EquityPeak = account.EquityPeak
		data.Regime = string(account.GateState)
		data.Positions = account.Positions
		if !account.AsOf.IsZero() {
			data.AsOf = account.AsOf.Format("2006-01-02")
		}
		if len(account.History) > 0 {
			data.Equity = account.History[len(account.History)-1].Value
		} else {
			data.Equity = account.Cash
		}
		if blotter, err := s.repo.RecentBlotter(name, 20); err == nil {
			data.Blotter = blotter
		}
	}

	tmpl, err := template.New("dashboard").Parse(dashboardTemplate)
	if err != nil {
		s.logger.Error("parse template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("execute template", "error", err)
	}
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	account, ok, err := s.repo.Load(s.config.Paper.AccountName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"name":          account.Name,
		"as_of":         formatDate(account.AsOf),
		"cash":          account.Cash,
		"positions":     account.Positions,
		"equity_peak":   account.EquityPeak,
		"gate_state":    account.GateState,
		"cooldown_left": account.CooldownLeft,
	})
}

func (s *Server) handleEquity(w http.ResponseWriter, r *http.Request) {
	account, ok, err := s.repo.Load(s.config.Paper.AccountName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}
	type point struct {
		Date   string  `json:"date"`
		Equity float64 `json:"equity"`
	}
	points := make([]point, 0, len(account.History))
	for _, p := range account.History {
		points = append(points, point{Date: p.Date.Format("2006-01-02"), Equity: p.Value})
	}
	writeJSON(w, points)
}

func (s *Server) handleBlotter(w http.ResponseWriter, r *http.Request) {
	entries, err := s.repo.RecentBlotter(s.config.Paper.AccountName, 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
