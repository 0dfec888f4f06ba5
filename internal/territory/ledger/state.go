package ledger

import (
	"github.com/shopspring/decimal"

	"skyclaim.ai/internal/territory/keys"
)

// State is the persisted form of a ledger. Raw sums are derived from Counts on
// restore; persist=false adjustments are never part of it.
type State struct {
	Counts     map[string]int64 `json:"counts"`
	BonusWorth decimal.Decimal  `json:"bonus_worth"`
	BonusLevel decimal.Decimal  `json:"bonus_level"`
	Bank       decimal.Decimal  `json:"bank"`
}

func (l *Ledger) State() State {
	return State{
		Counts:     l.PersistedCounts(),
		BonusWorth: l.bonusWorth,
		BonusLevel: l.bonusLevel,
		Bank:       l.bank,
	}
}

func Restore(s State, pricing Pricing, eq keys.Equivalence) *Ledger {
	l := New(pricing, eq)
	l.replaceCounts(s.Counts)
	l.bonusWorth = s.BonusWorth
	l.bonusLevel = s.BonusLevel
	l.bank = s.Bank
	return l
}
