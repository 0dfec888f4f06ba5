package territory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"skyclaim.ai/internal/async"
	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/ledger"
)

var errNoScanner = errors.New("no region scanner configured")

// RecordPlacement adds amount units of key. With persist=false the change
// lives only in memory and produces no delta.
func (t *Territory) RecordPlacement(key string, amount int64, persist bool) error {
	return t.mutate("record_placement", func() ([]Delta, error) {
		if _, err := t.ledger.Place(key, amount, persist); err != nil {
			return nil, err
		}
		return t.economyDeltas(persist), nil
	})
}

// RecordBreak removes amount units of key, flooring the count at zero.
func (t *Territory) RecordBreak(key string, amount int64, persist bool) error {
	return t.mutate("record_break", func() ([]Delta, error) {
		if _, err := t.ledger.Break(key, amount, persist); err != nil {
			return nil, err
		}
		return t.economyDeltas(persist), nil
	})
}

func (t *Territory) economyDeltas(persist bool) []Delta {
	if !persist {
		return nil
	}
	return t.deltas(DeltaBlocks, DeltaWorth)
}

func (t *Territory) Count(key string) (int64, error) {
	return view(t, "count", func() int64 { return t.ledger.Count(key) })
}

// AggregateCount sums the counts of every key equivalent to key.
func (t *Territory) AggregateCount(key string) (int64, error) {
	return view(t, "aggregate_count", func() int64 { return t.ledger.AggregateCount(key) })
}

func (t *Territory) BlockCounts() (map[string]int64, error) {
	return view(t, "block_counts", func() map[string]int64 { return t.ledger.Counts() })
}

// Worth is rawWorth + bonusWorth + bank.
func (t *Territory) Worth() (decimal.Decimal, error) {
	return view(t, "worth", func() decimal.Decimal { return t.ledger.Worth() })
}

func (t *Territory) Level() (decimal.Decimal, error) {
	return view(t, "level", func() decimal.Decimal { return t.ledger.Level() })
}

func (t *Territory) RawWorth() (decimal.Decimal, error) {
	return view(t, "raw_worth", func() decimal.Decimal { return t.ledger.RawWorth() })
}

func (t *Territory) RawLevel() (decimal.Decimal, error) {
	return view(t, "raw_level", func() decimal.Decimal { return t.ledger.RawLevel() })
}

func (t *Territory) BonusWorth() (decimal.Decimal, error) {
	return view(t, "bonus_worth", func() decimal.Decimal { return t.ledger.BonusWorth() })
}

func (t *Territory) BonusLevel() (decimal.Decimal, error) {
	return view(t, "bonus_level", func() decimal.Decimal { return t.ledger.BonusLevel() })
}

func (t *Territory) Bank() (decimal.Decimal, error) {
	return view(t, "bank", func() decimal.Decimal { return t.ledger.Bank() })
}

func (t *Territory) SetBonusWorth(v decimal.Decimal) error {
	return t.mutate("set_bonus_worth", func() ([]Delta, error) {
		t.ledger.SetBonusWorth(v)
		return t.deltas(DeltaBonus, DeltaWorth), nil
	})
}

func (t *Territory) SetBonusLevel(v decimal.Decimal) error {
	return t.mutate("set_bonus_level", func() ([]Delta, error) {
		t.ledger.SetBonusLevel(v)
		return t.deltas(DeltaBonus, DeltaWorth), nil
	})
}

func (t *Territory) Deposit(amount decimal.Decimal) error {
	return t.mutate("deposit", func() ([]Delta, error) {
		if err := t.ledger.Deposit(amount); err != nil {
			return nil, err
		}
		return t.deltas(DeltaBank, DeltaWorth), nil
	})
}

// Withdraw fails with InsufficientFunds, leaving the balance untouched, when
// amount exceeds the bank.
func (t *Territory) Withdraw(amount decimal.Decimal) error {
	return t.mutate("withdraw", func() ([]Delta, error) {
		if err := t.ledger.Withdraw(amount); err != nil {
			return nil, err
		}
		return t.deltas(DeltaBank, DeltaWorth), nil
	})
}

func (t *Territory) DepositFloat(amount float64) error {
	d, err := ledger.Amount(amount)
	if err != nil {
		return err
	}
	return t.Deposit(d)
}

func (t *Territory) WithdrawFloat(amount float64) error {
	d, err := ledger.Amount(amount)
	if err != nil {
		return err
	}
	return t.Withdraw(d)
}

func (t *Territory) BeingRecalculated() (bool, error) {
	return view(t, "being_recalculated", func() bool { return t.ledger.BeingRecalculated() })
}

// Recalculate rescans the region and rebuilds the raw worth and level. Only
// one scan runs at a time: a call made while one is in flight joins it, and
// every registered callback is invoked exactly once, in registration order,
// with the shared result. requester is only used for logging and may be
// uuid.Nil. The callback may be nil.
func (t *Territory) Recalculate(requester uuid.UUID, cb ledger.Callback) error {
	var start bool
	err := t.mutate("recalculate", func() ([]Delta, error) {
		start = t.ledger.BeginRecalc(cb)
		return nil, nil
	})
	if err != nil {
		return err
	}
	if start {
		go t.runRecalc(requester)
	}
	return nil
}

// RecalculateAsync is Recalculate with the shared result delivered through a
// future. A failed scan rejects the future with a QueryFailed error.
func (t *Territory) RecalculateAsync(requester uuid.UUID) *async.Future[ledger.RecalcResult] {
	f := async.New[ledger.RecalcResult]()
	err := t.Recalculate(requester, func(r ledger.RecalcResult) { f.Resolve(r, r.Err) })
	if err != nil {
		f.Resolve(ledger.RecalcResult{Err: err}, err)
	}
	return f
}

// RecalculateWait blocks until the shared recalculation finishes or ctx ends.
// Abandoning the wait does not stop the scan.
func (t *Territory) RecalculateWait(ctx context.Context, requester uuid.UUID) (ledger.RecalcResult, error) {
	return t.RecalculateAsync(requester).Wait(ctx)
}

func (t *Territory) runRecalc(requester uuid.UUID) {
	log := t.log.With(zap.String("requester", requester.String()))
	log.Debug("recalculation started")
	started := time.Now()

	counts, err := t.scan()

	t.mu.Lock()
	if t.disbanded {
		// Disband already released every waiter.
		t.mu.Unlock()
		return
	}
	res, waiters := t.ledger.CompleteRecalc(counts, err)
	var deltas []Delta
	if err == nil {
		deltas = t.deltas(DeltaBlocks, DeltaWorth)
	}
	t.mu.Unlock()

	if err != nil {
		log.Warn("recalculation failed", zap.Error(err), zap.Int("waiters", len(waiters)))
	} else {
		log.Info("recalculation finished",
			zap.Stringer("worth", res.Worth),
			zap.Stringer("level", res.Level),
			zap.Duration("took", time.Since(started)),
			zap.Int("waiters", len(waiters)))
	}
	for _, cb := range waiters {
		cb(res)
	}
	t.save(deltas)
}

func (t *Territory) scan() (map[string]int64, error) {
	if t.opts.Scanner == nil {
		return nil, errs.QueryFailed("scan_region", errNoScanner)
	}
	ctx, cancel := context.WithTimeout(t.ctx, t.opts.RecalcTimeout)
	defer cancel()
	raw, err := t.opts.Scanner.ScanRegion(ctx, t.bounds)
	if err != nil {
		return nil, errs.QueryFailed("scan_region", err)
	}
	counts := make(map[string]int64, len(raw))
	for k, n := range raw {
		counts[k] += int64(n)
	}
	return counts, nil
}
