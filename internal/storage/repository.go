package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camuig/etf-rotator/internal/market"
	"github.com/camuig/etf-rotator/internal/paper"
	"github.com/camuig/etf-rotator/internal/strategy"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Price bars

// SaveBars upserts daily bars keyed by (symbol, date).
func (r *Repository) SaveBars(bars []PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "amount"}),
	}).CreateInBatches(bars, 500).Error
}

// LastBarDate returns the newest cached bar date for a symbol.
func (r *Repository) LastBarDate(symbol string) (time.Time, bool, error) {
	var bar PriceBar
	err := r.db.Where("symbol = ?", symbol).Order("date DESC").First(&bar).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return bar.Date, true, nil
}

// LoadCloses reads cached closes per symbol in [start, end]; a zero end
// means no upper bound.
func (r *Repository) LoadCloses(symbols []string, start, end time.Time) (map[string][]market.Point, error) {
	out := make(map[string][]market.Point, len(symbols))
	for _, sym := range symbols {
		q := r.db.Where("symbol = ? AND date >= ?", sym, start)
		if !end.IsZero() {
			q = q.Where("date <= ?", end)
		}
		var bars []PriceBar
		if err := q.Order("date ASC").Find(&bars).Error; err != nil {
			return nil, fmt.Errorf("load bars for %s: %w", sym, err)
		}
		pts := make([]market.Point, 0, len(bars))
		for _, b := range bars {
			pts = append(pts, market.Point{Date: b.Date, Value: b.Close})
		}
		out[sym] = pts
	}
	return out, nil
}

// Paper accounts. Repository satisfies paper.Store.

func (r *Repository) Load(name string) (*paper.Account, bool, error) {
	var rec AccountRecord
	err := r.db.Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	positions := make(map[string]int64)
	if rec.PositionsJSON != "" {
		if err := json.Unmarshal([]byte(rec.PositionsJSON), &positions); err != nil {
			return nil, false, fmt.Errorf("decode positions for %q: %w", name, err)
		}
	}

	var points []EquityPoint
	if err := r.db.Where("account_id = ?", rec.ID).Order("date ASC").Find(&points).Error; err != nil {
		return nil, false, err
	}
	history := make([]market.Point, 0, len(points))
	for _, p := range points {
		history = append(history, market.Point{Date: p.Date, Value: p.Equity})
	}

	account := &paper.Account{
		Name:         rec.Name,
		Cash:         rec.Cash,
		Positions:    positions,
		EquityPeak:   rec.EquityPeak,
		GateState:    strategy.Regime(rec.GateState),
		CooldownLeft: rec.CooldownLeft,
		History:      history,
	}
	if rec.AsOf != nil {
		account.AsOf = *rec.AsOf
	}
	return account, true, nil
}

func (r *Repository) Save(a *paper.Account) error {
	positionsJSON, err := json.Marshal(a.Positions)
	if err != nil {
		return fmt.Errorf("encode positions for %q: %w", a.Name, err)
	}

	rec := AccountRecord{
		Name:          a.Name,
		Cash:          a.Cash,
		PositionsJSON: string(positionsJSON),
		EquityPeak:    a.EquityPeak,
		GateState:     string(a.GateState),
		CooldownLeft:  a.CooldownLeft,
	}
	if !a.AsOf.IsZero() {
		asOf := a.AsOf
		rec.AsOf = &asOf
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"as_of", "cash", "positions_json", "equity_peak", "gate_state", "cooldown_left", "updated_at",
			}),
		}).Create(&rec).Error; err != nil {
			return err
		}

		var stored AccountRecord
		if err := tx.Where("name = ?", a.Name).First(&stored).Error; err != nil {
			return err
		}

		history := append([]market.Point{}, a.History...)
		sort.Slice(history, func(i, j int) bool { return history[i].Date.Before(history[j].Date) })
		points := make([]EquityPoint, 0, len(history))
		for _, p := range history {
			points = append(points, EquityPoint{AccountID: stored.ID, Date: p.Date, Equity: p.Value})
		}
		if len(points) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"equity"}),
		}).CreateInBatches(points, 500).Error
	})
}

// Blotter

func (r *Repository) SaveBlotter(accountName string, rows []paper.BlotterRow) error {
	if len(rows) == 0 {
		return nil
	}
	var rec AccountRecord
	if err := r.db.Where("name = ?", accountName).First(&rec).Error; err != nil {
		return fmt.Errorf("blotter account %q: %w", accountName, err)
	}

	entries := make([]BlotterEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, BlotterEntry{
			AccountID:      rec.ID,
			TradeDate:      row.TradeDate,
			SignalDate:     row.SignalDate,
			Symbol:         row.Symbol,
			Action:         row.Action,
			CurrentWeight:  row.CurrentWeight,
			TargetWeight:   row.TargetWeight,
			TargetShares:   row.TargetShares,
			DeltaShares:    row.DeltaShares,
			ReferencePrice: row.ReferencePrice,
			EstimatedCost:  row.EstimatedCost,
			Regime:         string(row.Regime),
		})
	}
	return r.db.Create(&entries).Error
}

func (r *Repository) RecentBlotter(accountName string, limit int) ([]BlotterEntry, error) {
	var rec AccountRecord
	err := r.db.Where("name = ?", accountName).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []BlotterEntry
	err = r.db.Where("account_id = ?", rec.ID).
		Order("trade_date DESC, symbol ASC").Limit(limit).Find(&entries).Error
	return entries, err
}
