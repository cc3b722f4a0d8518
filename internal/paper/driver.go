package paper

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/camuig/etf-rotator/internal/costs"
	"github.com/camuig/etf-rotator/internal/logger"
	"github.com/camuig/etf-rotator/internal/market"
	"github.com/camuig/etf-rotator/internal/strategy"
)

type Config struct {
	Strategy strategy.Params

	DeriskDrawdown  float64
	CircuitDrawdown float64
	CooldownWeeks   int

	InitialCapital float64
	Costs          costs.Model
	AccountName    string
}

// BlotterRow is one blotter line per symbol touched at a rebalance,
// including HOLD rows for manual cross-checking.
type BlotterRow struct {
	TradeDate      time.Time
	SignalDate     time.Time
	Symbol         string
	Action         string
	CurrentWeight  float64
	TargetWeight   float64
	TargetShares   int64
	DeltaShares    int64
	ReferencePrice float64
	EstimatedCost  float64
	Regime         strategy.Regime
}

type AdvanceResult struct {
	Account   *Account
	Decision  strategy.Decision
	TradeDate time.Time
	PreValue  float64
	PostValue float64
	Blotter   []BlotterRow
}

// Driver advances a persisted account by at most one weekly rebalance per
// call, settling in whole shares under the cash constraint.
type Driver struct {
	store Store
	cfg   Config
	log   *logger.Logger
}

func NewDriver(store Store, cfg Config, log *logger.Logger) *Driver {
	return &Driver{store: store, cfg: cfg, log: log}
}

func (d *Driver) symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append(append([]string{}, d.cfg.Strategy.GrowthETFs...), d.cfg.Strategy.DefensiveETF) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (d *Driver) loadOrCreate() (*Account, error) {
	account, ok, err := d.store.Load(d.cfg.AccountName)
	if err != nil {
		return nil, fmt.Errorf("load account %q: %w", d.cfg.AccountName, err)
	}
	if !ok {
		account = NewAccount(d.cfg.AccountName, d.cfg.InitialCapital)
		d.log.Info("paper account created", "name", account.Name, "initial_capital", d.cfg.InitialCapital)
	}
	return account, nil
}

// nextRebalance picks the earliest weekly boundary strictly after as_of.
func (d *Driver) nextRebalance(t *market.Table, account *Account) (int, error) {
	indexes := t.RebalanceIndexes()
	if len(indexes) == 0 {
		return 0, fmt.Errorf("paper: %w: price history spans no weekly boundary", market.ErrMissingHistory)
	}
	for _, i := range indexes {
		if account.AsOf.IsZero() || t.Date(i).After(account.AsOf) {
			return i, nil
		}
	}
	return 0, ErrNothingToDo
}

// Advance executes exactly one pending weekly rebalance: backfill daily
// valuations up to the signal date, decide, sell before buying, shrink
// unaffordable buys one share at a time, persist, and return the blotter.
// ErrNothingToDo is returned without touching the account when it is
// already caught up.
func (d *Driver) Advance(t *market.Table) (*AdvanceResult, error) {
	symbols := d.symbols()
	for _, sym := range symbols {
		if !t.HasSymbol(sym) {
			return nil, fmt.Errorf("paper: %w: %s", market.ErrMissingHistory, sym)
		}
	}

	account, err := d.loadOrCreate()
	if err != nil {
		return nil, err
	}

	tradeIdx, err := d.nextRebalance(t, account)
	if err != nil {
		return nil, err
	}
	signalIdx := tradeIdx - 1
	tradeDate := t.Date(tradeIdx)
	signalDate := t.Date(signalIdx)

	prePositions := make(map[string]int64, len(account.Positions))
	for sym, sh := range account.Positions {
		prePositions[sym] = sh
	}
	preCash := account.Cash

	d.backfillHistory(t, account, signalIdx)

	gate := &strategy.RiskGate{
		DeriskDrawdown:  d.cfg.DeriskDrawdown,
		CircuitDrawdown: d.cfg.CircuitDrawdown,
		CooldownWeeks:   d.cfg.CooldownWeeks,
		State:           account.GateState,
		CooldownLeft:    account.CooldownLeft,
	}

	signalValue := account.Value(t, signalIdx)
	if signalValue > account.EquityPeak {
		account.EquityPeak = signalValue
	}
	drawdown := strategy.Drawdown(signalValue, account.EquityPeak)

	// Current weights are valued at the trade date's close: the signal was
	// formed yesterday but the trade settles at today's prices.
	preValue := preCash
	for sym, sh := range prePositions {
		preValue += float64(sh) * t.Close(sym, tradeIdx)
	}
	currentWeights := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		sh := prePositions[sym]
		if sh > 0 && preValue > 0 {
			currentWeights[sym] = float64(sh) * t.Close(sym, tradeIdx) / preValue
		}
	}

	dec := strategy.Decide(t, d.cfg.Strategy, gate, signalIdx, drawdown, currentWeights)
	if dec.RegimeChanged {
		d.log.Info("paper regime change",
			"regime", string(dec.Regime),
			"signal_date", signalDate.Format("2006-01-02"),
			"drawdown_pct", dec.Drawdown*100,
			"cooldown_left", dec.CooldownLeft)
	}

	// Whole-share targets; symbols held but absent from the target set are
	// liquidated to zero.
	order := orderedTargets(symbols, prePositions, dec.Weights)
	targetShares := make(map[string]int64, len(order))
	for _, sym := range order {
		w, inTarget := dec.Weights[sym]
		if !inTarget {
			targetShares[sym] = 0
			continue
		}
		px := t.Close(sym, tradeIdx)
		if px > 0 {
			targetShares[sym] = int64(math.Floor(preValue * w / px))
		}
	}

	cash := preCash
	costBySymbol := make(map[string]float64)

	// Sells first: frees cash for the buys.
	for _, sym := range order {
		cur := account.Positions[sym]
		delta := targetShares[sym] - cur
		if delta >= 0 {
			continue
		}
		px := t.Close(sym, tradeIdx)
		if px <= 0 {
			continue
		}
		sellShares := -delta
		sellValue := float64(sellShares) * px
		cost := d.cfg.Costs.Estimate([]costs.Trade{{Symbol: sym, TradeValue: sellValue, SellValue: sellValue}})
		cash += sellValue - cost
		account.Positions[sym] = cur - sellShares
		costBySymbol[sym] += cost
	}

	// Buys, defensive last: it is the fallback sink for leftover cash. An
	// unaffordable buy shrinks one share at a time; reaching zero is a
	// HOLD, not an error.
	for _, sym := range buyOrder(order, d.cfg.Strategy.DefensiveETF) {
		cur := account.Positions[sym]
		delta := targetShares[sym] - cur
		if delta <= 0 {
			continue
		}
		px := t.Close(sym, tradeIdx)
		if px <= 0 {
			continue
		}
		buy := delta
		for buy > 0 {
			buyValue := float64(buy) * px
			cost := d.cfg.Costs.Estimate([]costs.Trade{{Symbol: sym, TradeValue: buyValue}})
			if cash >= buyValue+cost-1e-6 {
				cash -= buyValue + cost
				account.Positions[sym] = cur + buy
				costBySymbol[sym] += cost
				break
			}
			buy--
		}
		if buy == 0 {
			d.log.Info("buy degraded to HOLD: insufficient cash", "symbol", sym, "wanted_shares", delta)
		}
	}

	// Snapshot executed share counts before the zero-cleanup below drops
	// empty entries. A buy degraded all the way to zero settles at the
	// current holding, not the ideal target.
	executed := make(map[string]int64, len(order))
	for _, sym := range order {
		executed[sym] = account.Positions[sym]
	}

	for sym, sh := range account.Positions {
		if sh == 0 {
			delete(account.Positions, sym)
		}
	}
	account.Cash = cash

	postValue := account.Value(t, tradeIdx)
	account.AsOf = tradeDate
	account.GateState = gate.State
	account.CooldownLeft = gate.CooldownLeft
	account.History = append(account.History, market.Point{Date: tradeDate, Value: postValue})
	if postValue > account.EquityPeak {
		account.EquityPeak = postValue
	}

	if err := d.store.Save(account); err != nil {
		return nil, fmt.Errorf("save account %q: %w", account.Name, err)
	}

	blotter := buildBlotter(t, tradeIdx, signalIdx, symbols, prePositions, targetShares,
		executed, currentWeights, dec, costBySymbol)

	d.log.Info("paper rebalance done",
		"trade_date", tradeDate.Format("2006-01-02"),
		"value", postValue,
		"cash", account.Cash,
		"regime", string(gate.State))

	return &AdvanceResult{
		Account:   account,
		Decision:  dec,
		TradeDate: tradeDate,
		PreValue:  preValue,
		PostValue: postValue,
		Blotter:   blotter,
	}, nil
}

// backfillHistory marks the account to market for every trading day after
// as_of up to and including the signal date, so the equity history and
// peak stay continuous across multi-week gaps. No trading happens here.
func (d *Driver) backfillHistory(t *market.Table, account *Account, signalIdx int) {
	if account.AsOf.IsZero() {
		return
	}
	seen := make(map[time.Time]bool, len(account.History))
	for _, p := range account.History {
		seen[p.Date] = true
	}
	for i := 0; i <= signalIdx; i++ {
		date := t.Date(i)
		if !date.After(account.AsOf) || seen[date] {
			continue
		}
		v := account.Value(t, i)
		account.History = append(account.History, market.Point{Date: date, Value: v})
		if v > account.EquityPeak {
			account.EquityPeak = v
		}
	}
}

// orderedTargets lists the symbols to settle: universe order first, then
// any stray held symbol (sorted, for determinism).
func orderedTargets(symbols []string, prePositions map[string]int64, weights map[string]float64) []string {
	seen := make(map[string]bool)
	var out []string
	for _, sym := range symbols {
		if _, ok := weights[sym]; ok || prePositions[sym] != 0 {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	var extra []string
	for sym := range prePositions {
		if !seen[sym] {
			extra = append(extra, sym)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func buyOrder(order []string, defensive string) []string {
	out := make([]string, 0, len(order))
	hasDefensive := false
	for _, sym := range order {
		if sym == defensive {
			hasDefensive = true
			continue
		}
		out = append(out, sym)
	}
	if hasDefensive {
		out = append(out, defensive)
	}
	return out
}

func buildBlotter(
	t *market.Table,
	tradeIdx, signalIdx int,
	symbols []string,
	prePositions, targetShares, executed map[string]int64,
	currentWeights map[string]float64,
	dec strategy.Decision,
	costBySymbol map[string]float64,
) []BlotterRow {
	union := make(map[string]bool)
	for _, sym := range symbols {
		union[sym] = true
	}
	for sym := range prePositions {
		union[sym] = true
	}
	for sym := range targetShares {
		union[sym] = true
	}
	names := make([]string, 0, len(union))
	for sym := range union {
		names = append(names, sym)
	}
	sort.Strings(names)

	rows := make([]BlotterRow, 0, len(names))
	for _, sym := range names {
		cur := prePositions[sym]
		// Executed shares win over the ideal target: an unaffordable buy
		// has already been shrunk by the time we get here, possibly to
		// nothing, and a degraded-to-zero buy is a HOLD.
		tgt := cur
		if v, ok := executed[sym]; ok {
			tgt = v
		} else if v, ok := targetShares[sym]; ok {
			tgt = v
		}
		delta := tgt - cur
		action := "HOLD"
		if delta > 0 {
			action = "BUY"
		} else if delta < 0 {
			action = "SELL"
		}
		rows = append(rows, BlotterRow{
			TradeDate:      t.Date(tradeIdx),
			SignalDate:     t.Date(signalIdx),
			Symbol:         sym,
			Action:         action,
			CurrentWeight:  currentWeights[sym],
			TargetWeight:   dec.Weights[sym],
			TargetShares:   tgt,
			DeltaShares:    delta,
			ReferencePrice: t.Close(sym, tradeIdx),
			EstimatedCost:  costBySymbol[sym],
			Regime:         dec.Regime,
		})
	}
	return rows
}
