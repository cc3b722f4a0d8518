package costs

// Trade is one symbol's gross trade intent at a rebalance. SellValue is the
// portion attributable to a sale, 0 for a pure buy.
type Trade struct {
	Symbol     string
	TradeValue float64
	SellValue  float64
}

// Model estimates transaction costs: commission with a per-symbol minimum,
// stamp tax on sell value, and slippage in basis points. Applying the
// commission minimum per traded symbol rather than per rebalance is a
// conservative upper bound.
type Model struct {
	CommissionRate float64
	MinCommission  float64
	StampTaxRate   float64
	SlippageBps    float64
}

// Estimate totals the modeled cost across trades. Trades with
// non-positive trade value contribute nothing.
func (m Model) Estimate(trades []Trade) float64 {
	var total float64
	for _, t := range trades {
		if t.TradeValue <= 0 {
			continue
		}
		commission := t.TradeValue * m.CommissionRate
		if commission < m.MinCommission {
			commission = m.MinCommission
		}
		stampTax := t.SellValue * m.StampTaxRate
		slippage := t.TradeValue * m.SlippageBps / 10000.0
		total += commission + stampTax + slippage
	}
	return total
}
