// Package generator keeps the weighted table a territory's resource generator
// draws from. Weights are the stored form; percentages are derived from them
// and drift by up to one point through integer rounding.
package generator

import (
	"sort"

	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/keys"
)

// Table is not safe for concurrent use.
type Table struct {
	weights map[string]int64
}

func New() *Table {
	return &Table{weights: map[string]int64{}}
}

// FromAmounts builds a table from raw weights, dropping non-positive ones.
func FromAmounts(amounts map[string]int64) *Table {
	t := New()
	for k, v := range amounts {
		if k = keys.Normalize(k); k != "" && v > 0 {
			t.weights[k] = v
		}
	}
	return t
}

// SetPercentage makes key account for roughly pct percent of the draws.
// 0 removes the key and 100 makes it the only entry.
func (t *Table) SetPercentage(key string, pct int) error {
	const op = "set_generator_percentage"
	key = keys.Normalize(key)
	if key == "" {
		return errs.Validation(op, "key must not be empty")
	}
	if pct < 0 || pct > 100 {
		return errs.Validation(op, "percentage must be within 0..100, got %d", pct)
	}
	switch pct {
	case 0:
		delete(t.weights, key)
		return nil
	case 100:
		t.weights = map[string]int64{key: 1}
		return nil
	}

	others := t.Total() - t.weights[key]
	if others == 0 {
		t.weights[key] = int64(pct)
		return nil
	}
	// round-half-up of pct*others/(100-pct)
	den := int64(100 - pct)
	w := (2*int64(pct)*others + den) / (2 * den)
	if w == 0 {
		w = 1
	}
	t.weights[key] = w
	return nil
}

// Percentage is floor(weight*100/total), and 0 when the table is empty.
func (t *Table) Percentage(key string) int {
	total := t.Total()
	if total == 0 {
		return 0
	}
	return int(t.weights[keys.Normalize(key)] * 100 / total)
}

func (t *Table) SetAmount(key string, amount int64) error {
	const op = "set_generator_amount"
	key = keys.Normalize(key)
	if key == "" {
		return errs.Validation(op, "key must not be empty")
	}
	if amount < 0 {
		return errs.Validation(op, "amount must be >= 0, got %d", amount)
	}
	if amount == 0 {
		delete(t.weights, key)
		return nil
	}
	t.weights[key] = amount
	return nil
}

func (t *Table) Amount(key string) int64 { return t.weights[keys.Normalize(key)] }

func (t *Table) Total() int64 {
	var total int64
	for _, w := range t.weights {
		total += w
	}
	return total
}

func (t *Table) Len() int { return len(t.weights) }

func (t *Table) Clear() { t.weights = map[string]int64{} }

func (t *Table) Amounts() map[string]int64 {
	out := make(map[string]int64, len(t.weights))
	for k, v := range t.weights {
		out[k] = v
	}
	return out
}

func (t *Table) Percentages() map[string]int {
	out := make(map[string]int, len(t.weights))
	for k := range t.weights {
		out[k] = t.Percentage(k)
	}
	return out
}

// Keys returns the keys sorted by descending weight, then by name.
func (t *Table) Keys() []string {
	out := make([]string, 0, len(t.weights))
	for k := range t.weights {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		wi, wj := t.weights[out[i]], t.weights[out[j]]
		if wi != wj {
			return wi > wj
		}
		return out[i] < out[j]
	})
	return out
}

// Array is the flattened view: every key repeated weight times, in Keys
// order, for uniform sampling.
func (t *Table) Array() []string {
	out := make([]string, 0, t.Total())
	for _, k := range t.Keys() {
		for i := int64(0); i < t.weights[k]; i++ {
			out = append(out, k)
		}
	}
	return out
}
