package storage

import "time"

type PriceBar struct {
	ID uint `gorm:"primarykey" json:"id"`

	Symbol string    `gorm:"uniqueIndex:idx_symbol_date;not null" json:"symbol"`
	Date   time.Time `gorm:"uniqueIndex:idx_symbol_date;not null" json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `gorm:"not null" json:"close"`
	Volume float64   `json:"volume"`
	Amount float64   `json:"amount"`
}

// AccountRecord is the persisted paper account. Positions are a JSON
// object of symbol -> whole shares; equity history lives in EquityPoint.
type AccountRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name          string     `gorm:"uniqueIndex;not null" json:"name"`
	AsOf          *time.Time `json:"as_of"`
	Cash          float64    `gorm:"not null" json:"cash"`
	PositionsJSON string     `gorm:"type:text" json:"positions_json"`
	EquityPeak    float64    `json:"equity_peak"`
	GateState     string     `gorm:"not null;default:'NORMAL'" json:"gate_state"`
	CooldownLeft  int        `json:"cooldown_left"`
}

type EquityPoint struct {
	ID uint `gorm:"primarykey" json:"id"`

	AccountID uint      `gorm:"uniqueIndex:idx_account_date;not null" json:"account_id"`
	Date      time.Time `gorm:"uniqueIndex:idx_account_date;not null" json:"date"`
	Equity    float64   `gorm:"not null" json:"equity"`
}

type BlotterEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	AccountID      uint      `gorm:"index;not null" json:"account_id"`
	TradeDate      time.Time `gorm:"index;not null" json:"trade_date"`
	SignalDate     time.Time `gorm:"not null" json:"signal_date"`
	Symbol         string    `gorm:"not null" json:"symbol"`
	Action         string    `gorm:"not null" json:"action"` // BUY, SELL or HOLD
	CurrentWeight  float64   `json:"current_weight"`
	TargetWeight   float64   `json:"target_weight"`
	TargetShares   int64     `json:"target_shares"`
	DeltaShares    int64     `json:"delta_shares"`
	ReferencePrice float64   `json:"reference_price"`
	EstimatedCost  float64   `json:"estimated_cost"`
	Regime         string    `json:"regime"`
}
