package web

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	mtxRebalances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rotator_rebalances_total",
			Help: "Paper rebalances processed, by resulting regime",
		},
		[]string{"regime"},
	)

	mtxDataErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rotator_data_update_errors_total",
			Help: "Failed market data refresh cycles",
		},
	)

	mtxEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rotator_account_equity",
			Help: "Latest paper account equity",
		},
	)

	mtxDrawdown = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rotator_account_drawdown",
			Help: "Drawdown at the latest processed signal date",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxRebalances, mtxDataErrors, mtxEquity, mtxDrawdown)
}

// ObserveRebalance updates the gauges after a successful paper advance.
func ObserveRebalance(regime string, equity, drawdown float64) {
	mtxRebalances.WithLabelValues(regime).Inc()
	mtxEquity.Set(equity)
	mtxDrawdown.Set(drawdown)
}

// ObserveDataError counts a failed data refresh.
func ObserveDataError() {
	mtxDataErrors.Inc()
}
