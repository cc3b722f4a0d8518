package paper

import (
	"errors"
	"time"

	"github.com/camuig/etf-rotator/internal/market"
	"github.com/camuig/etf-rotator/internal/strategy"
)

// ErrNothingToDo means the account is already caught up with the price
// table: there is no weekly boundary after as_of. Not a failure.
var ErrNothingToDo = errors.New("no pending rebalance")

// Account is the persisted paper-trading state. It is single-owner:
// callers must serialize advances against the same account.
type Account struct {
	Name         string
	AsOf         time.Time // zero until the first advance
	Cash         float64
	Positions    map[string]int64
	EquityPeak   float64
	GateState    strategy.Regime
	CooldownLeft int
	History      []market.Point
}

func NewAccount(name string, initialCapital float64) *Account {
	return &Account{
		Name:       name,
		Cash:       initialCapital,
		Positions:  make(map[string]int64),
		EquityPeak: initialCapital,
		GateState:  strategy.RegimeNormal,
	}
}

// Value marks the account to market at table row i: cash plus every held
// position at that day's close.
func (a *Account) Value(t *market.Table, i int) float64 {
	v := a.Cash
	for sym, shares := range a.Positions {
		if t.HasSymbol(sym) {
			v += float64(shares) * t.Close(sym, i)
		}
	}
	return v
}

// Store loads and saves accounts by name. The sqlite repository implements
// it in production; tests use an in-memory double.
type Store interface {
	// Load returns (account, true) when the named account exists.
	Load(name string) (*Account, bool, error)
	Save(a *Account) error
}
