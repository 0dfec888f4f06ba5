// Package limits enforces the per-resource, per-entity, team and warp caps of
// a territory.
//
// A resource key resolves its cap in two ways. Limit follows equivalence: a
// custom limit on the key itself, then on any equivalent key, then on its
// global key, then the category default. ExactLimit only looks at the key's
// own custom limit before the default. HasReached pairs Limit with the
// aggregate count and HasReachedExact pairs ExactLimit with the exact count.
package limits

import (
	"sort"

	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/keys"
)

// Counter is the part of the resource ledger the engine reads.
type Counter interface {
	Count(key string) int64
	AggregateCount(key string) int64
}

// Defaults are the externally supplied fallbacks. Blocks and Entities are
// keyed by category (the global key); a negative value means no limit.
type Defaults struct {
	Blocks   map[string]int64
	Entities map[string]int64
	Team     int64
	Warps    int64
	Coops    int64
}

type Kind int

const (
	KindBlock Kind = iota
	KindEntity
)

func (k Kind) String() string {
	if k == KindEntity {
		return "entity"
	}
	return "block"
}

// Engine is not safe for concurrent use.
type Engine struct {
	eq       keys.Equivalence
	defaults Defaults

	custom map[Kind]map[string]int64

	team  Cap
	warps Cap
	coops Cap
}

func New(defaults Defaults, eq keys.Equivalence) *Engine {
	if eq == nil {
		eq = keys.Exact{}
	}
	return &Engine{
		eq:       eq,
		defaults: defaults,
		custom:   map[Kind]map[string]int64{KindBlock: {}, KindEntity: {}},
		team:     FromConfig(defaults.Team),
		warps:    FromConfig(defaults.Warps),
		coops:    FromConfig(defaults.Coops),
	}
}

func (e *Engine) SetLimit(kind Kind, key string, n int64) error {
	key = keys.Normalize(key)
	if key == "" {
		return errs.Validation("set_limit", "%s key must not be empty", kind)
	}
	if n < 0 {
		return errs.Validation("set_limit", "%s limit for %s must be >= 0, got %d", kind, key, n)
	}
	e.custom[kind][key] = n
	return nil
}

// RemoveLimit drops a custom limit so the key falls back to its default.
func (e *Engine) RemoveLimit(kind Kind, key string) bool {
	key = keys.Normalize(key)
	if _, ok := e.custom[kind][key]; !ok {
		return false
	}
	delete(e.custom[kind], key)
	return true
}

func (e *Engine) ClearLimits(kind Kind) { e.custom[kind] = map[string]int64{} }

// CustomLimits returns a copy of the custom limits of one kind.
func (e *Engine) CustomLimits(kind Kind) map[string]int64 {
	out := make(map[string]int64, len(e.custom[kind]))
	for k, v := range e.custom[kind] {
		out[k] = v
	}
	return out
}

func (e *Engine) Limit(kind Kind, key string) Cap {
	key = keys.Normalize(key)
	custom := e.custom[kind]
	if n, ok := custom[key]; ok {
		return Of(n)
	}
	for _, k := range e.eq.Expand(key) {
		if n, ok := custom[k]; ok {
			return Of(n)
		}
	}
	if n, ok := custom[keys.Global(key)]; ok {
		return Of(n)
	}
	return e.defaultCap(kind, key)
}

func (e *Engine) ExactLimit(kind Kind, key string) Cap {
	key = keys.Normalize(key)
	if n, ok := e.custom[kind][key]; ok {
		return Of(n)
	}
	return e.defaultCap(kind, key)
}

func (e *Engine) defaultCap(kind Kind, key string) Cap {
	table := e.defaults.Blocks
	if kind == KindEntity {
		table = e.defaults.Entities
	}
	if n, ok := table[key]; ok {
		return FromConfig(n)
	}
	if n, ok := table[keys.Global(key)]; ok {
		return FromConfig(n)
	}
	return Unlimited
}

// HasReached checks the aggregate count of key against Limit.
func (e *Engine) HasReached(c Counter, key string, added int64) bool {
	return e.Limit(KindBlock, key).Reached(c.AggregateCount(key), added)
}

// HasReachedExact checks the exact count of key against ExactLimit.
func (e *Engine) HasReachedExact(c Counter, key string, added int64) bool {
	return e.ExactLimit(KindBlock, key).Reached(c.Count(key), added)
}

func (e *Engine) TeamLimit() Cap      { return e.team }
func (e *Engine) WarpsLimit() Cap     { return e.warps }
func (e *Engine) CoopLimit() Cap      { return e.coops }
func (e *Engine) SetTeamLimit(c Cap)  { e.team = c }
func (e *Engine) SetWarpsLimit(c Cap) { e.warps = c }
func (e *Engine) SetCoopLimit(c Cap)  { e.coops = c }

// TeamFull reports whether a team of size cannot take one more member.
func (e *Engine) TeamFull(size int) bool { return e.team.Reached(int64(size), 1) }

func (e *Engine) CoopsFull(count int) bool { return e.coops.Reached(int64(count), 1) }

func (e *Engine) HasMoreWarpSlots(count int) bool { return !e.warps.Reached(int64(count), 1) }

// Keys lists every key with a custom limit of the given kind, sorted.
func (e *Engine) Keys(kind Kind) []string {
	out := make([]string, 0, len(e.custom[kind]))
	for k := range e.custom[kind] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
