// Package ledger keeps the resource economy of one territory: how many units
// of each resource are placed, what they are worth, the bonus components and
// the bank balance.
//
//	worth = rawWorth + bonusWorth + bank
//	level = rawLevel + bonusLevel
//
// A Ledger is not safe for concurrent use; the owning territory serializes
// access and drives recalculation through BeginRecalc/CompleteRecalc.
package ledger

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/keys"
)

type Ledger struct {
	pricing Pricing
	eq      keys.Equivalence

	counts map[string]int64

	// persisted tracks only adjustments made with persist=true, clamped at
	// zero on its own. A full recount resets it to counts.
	persisted map[string]int64

	rawWorth   decimal.Decimal
	rawLevel   decimal.Decimal
	bonusWorth decimal.Decimal
	bonusLevel decimal.Decimal
	bank       decimal.Decimal

	recalculating bool
	pending       []Callback
}

func New(pricing Pricing, eq keys.Equivalence) *Ledger {
	if pricing == nil {
		pricing = PriceTable{}
	}
	if eq == nil {
		eq = keys.Exact{}
	}
	return &Ledger{
		pricing:   pricing,
		eq:        eq,
		counts:    map[string]int64{},
		persisted: map[string]int64{},
	}
}

// Place adds amount units of key and returns the new exact count. With
// persist=false the change counts now but is left out of PersistedCounts.
func (l *Ledger) Place(key string, amount int64, persist bool) (int64, error) {
	key = keys.Normalize(key)
	if err := checkAdjust("record_placement", key, amount); err != nil {
		return 0, err
	}
	l.apply(key, amount)
	if persist {
		l.adjustPersisted(key, amount)
	}
	return l.counts[key], nil
}

// Break removes up to amount units of key. Breaking more than recorded clamps
// the count at zero.
func (l *Ledger) Break(key string, amount int64, persist bool) (int64, error) {
	key = keys.Normalize(key)
	if err := checkAdjust("record_break", key, amount); err != nil {
		return 0, err
	}
	removed := amount
	if cur := l.counts[key]; removed > cur {
		removed = cur
	}
	l.apply(key, -removed)
	if persist {
		l.adjustPersisted(key, -amount)
	}
	return l.counts[key], nil
}

func checkAdjust(op, key string, amount int64) error {
	if key == "" {
		return errs.Validation(op, "resource key must not be empty")
	}
	if amount < 0 {
		return errs.Validation(op, "amount must be >= 0, got %d", amount)
	}
	return nil
}

func (l *Ledger) apply(key string, delta int64) {
	if delta == 0 {
		return
	}
	addClamped(l.counts, key, delta)
	d := decimal.NewFromInt(delta)
	l.rawWorth = l.rawWorth.Add(l.pricing.Worth(key).Mul(d))
	l.rawLevel = l.rawLevel.Add(l.pricing.Level(key).Mul(d))
}

// Count is the exact count recorded for key.
func (l *Ledger) Count(key string) int64 { return l.counts[keys.Normalize(key)] }

// AggregateCount sums the counts of every key equivalent to key.
func (l *Ledger) AggregateCount(key string) int64 {
	var total int64
	for k, n := range l.counts {
		if keys.Matches(l.eq, key, k) {
			total += n
		}
	}
	return total
}

func (l *Ledger) Counts() map[string]int64 { return copyCounts(l.counts) }

// PersistedCounts leaves out adjustments made with persist=false.
func (l *Ledger) PersistedCounts() map[string]int64 { return copyCounts(l.persisted) }

func (l *Ledger) adjustPersisted(key string, delta int64) { addClamped(l.persisted, key, delta) }

func addClamped(m map[string]int64, key string, delta int64) {
	if next := m[key] + delta; next <= 0 {
		delete(m, key)
	} else {
		m[key] = next
	}
}

// Keys lists the counted keys, sorted.
func (l *Ledger) Keys() []string {
	out := make([]string, 0, len(l.counts))
	for k := range l.counts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) RawWorth() decimal.Decimal   { return l.rawWorth }
func (l *Ledger) RawLevel() decimal.Decimal   { return l.rawLevel }
func (l *Ledger) BonusWorth() decimal.Decimal { return l.bonusWorth }
func (l *Ledger) BonusLevel() decimal.Decimal { return l.bonusLevel }
func (l *Ledger) Bank() decimal.Decimal       { return l.bank }

func (l *Ledger) Worth() decimal.Decimal {
	return l.rawWorth.Add(l.bonusWorth).Add(l.bank)
}

func (l *Ledger) Level() decimal.Decimal {
	return l.rawLevel.Add(l.bonusLevel)
}

func (l *Ledger) SetBonusWorth(v decimal.Decimal) { l.bonusWorth = v }
func (l *Ledger) SetBonusLevel(v decimal.Decimal) { l.bonusLevel = v }

func (l *Ledger) Deposit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errs.Validation("deposit", "amount must be >= 0, got %s", amount)
	}
	l.bank = l.bank.Add(amount)
	return nil
}

func (l *Ledger) Withdraw(amount decimal.Decimal) error {
	const op = "withdraw"
	if amount.IsNegative() {
		return errs.Validation(op, "amount must be >= 0, got %s", amount)
	}
	if amount.GreaterThan(l.bank) {
		return errs.InsufficientFunds(op, "requested %s, balance %s", amount, l.bank)
	}
	l.bank = l.bank.Sub(amount)
	return nil
}

// Amount converts a float money amount, rejecting NaN, infinities and
// negative values.
func Amount(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, errs.Validation("amount", "amount must be finite")
	}
	if f < 0 {
		return decimal.Zero, errs.Validation("amount", "amount must be >= 0, got %v", f)
	}
	return decimal.NewFromFloat(f), nil
}

// replaceCounts swaps in a full recount and rebuilds the raw sums.
func (l *Ledger) replaceCounts(counts map[string]int64) {
	l.counts = map[string]int64{}
	l.rawWorth = decimal.Zero
	l.rawLevel = decimal.Zero
	for k, n := range counts {
		k = keys.Normalize(k)
		if k == "" || n <= 0 {
			continue
		}
		l.counts[k] += n
	}
	l.persisted = copyCounts(l.counts)
	for k, n := range l.counts {
		d := decimal.NewFromInt(n)
		l.rawWorth = l.rawWorth.Add(l.pricing.Worth(k).Mul(d))
		l.rawLevel = l.rawLevel.Add(l.pricing.Level(k).Mul(d))
	}
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
