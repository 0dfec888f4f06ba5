package ledger

import (
	"github.com/shopspring/decimal"

	"skyclaim.ai/internal/territory/keys"
)

// Pricing gives the worth and level contributed by one unit of a resource.
type Pricing interface {
	Worth(key string) decimal.Decimal
	Level(key string) decimal.Decimal
}

// PriceTable looks a key up exactly, then by its global key, then falls back
// to the defaults.
type PriceTable struct {
	WorthByKey   map[string]decimal.Decimal
	LevelByKey   map[string]decimal.Decimal
	DefaultWorth decimal.Decimal
	DefaultLevel decimal.Decimal
}

func (p PriceTable) Worth(key string) decimal.Decimal {
	return lookup(p.WorthByKey, key, p.DefaultWorth)
}

func (p PriceTable) Level(key string) decimal.Decimal {
	return lookup(p.LevelByKey, key, p.DefaultLevel)
}

func lookup(m map[string]decimal.Decimal, key string, def decimal.Decimal) decimal.Decimal {
	key = keys.Normalize(key)
	if v, ok := m[key]; ok {
		return v
	}
	if v, ok := m[keys.Global(key)]; ok {
		return v
	}
	return def
}
