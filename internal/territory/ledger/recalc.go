package ledger

import "github.com/shopspring/decimal"

// RecalcResult is what every waiter of one recalculation receives.
type RecalcResult struct {
	Worth decimal.Decimal
	Level decimal.Decimal
	Err   error
}

type Callback func(RecalcResult)

func (l *Ledger) BeingRecalculated() bool { return l.recalculating }

// BeginRecalc registers cb for the next completed recalculation. It returns
// true when the caller must start the scan; false means one is already in
// flight and cb joins its waiters.
func (l *Ledger) BeginRecalc(cb Callback) bool {
	if cb != nil {
		l.pending = append(l.pending, cb)
	}
	if l.recalculating {
		return false
	}
	l.recalculating = true
	return true
}

// CompleteRecalc applies a finished scan. A failed scan leaves the counts
// untouched. The returned callbacks must be invoked once each, in order,
// after the caller releases its lock.
func (l *Ledger) CompleteRecalc(counts map[string]int64, scanErr error) (RecalcResult, []Callback) {
	if scanErr == nil {
		l.replaceCounts(counts)
	}
	l.recalculating = false
	waiters := l.pending
	l.pending = nil
	return RecalcResult{Worth: l.Worth(), Level: l.Level(), Err: scanErr}, waiters
}

// AbortRecalc clears the in-flight flag and hands back the pending waiters.
// The caller must notify each of them; the territory does so with
// ErrDisbanded when it is disbanded mid-scan.
func (l *Ledger) AbortRecalc() []Callback {
	l.recalculating = false
	waiters := l.pending
	l.pending = nil
	return waiters
}
