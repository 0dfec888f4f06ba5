package territory

import (
	"context"

	"skyclaim.ai/internal/async"
	"skyclaim.ai/internal/territory/limits"
)

func (t *Territory) BlockLimit(key string) (limits.Cap, error) {
	return view(t, "block_limit", func() limits.Cap { return t.limits.Limit(limits.KindBlock, key) })
}

func (t *Territory) ExactBlockLimit(key string) (limits.Cap, error) {
	return view(t, "exact_block_limit", func() limits.Cap { return t.limits.ExactLimit(limits.KindBlock, key) })
}

func (t *Territory) EntityLimit(entityType string) (limits.Cap, error) {
	return view(t, "entity_limit", func() limits.Cap { return t.limits.Limit(limits.KindEntity, entityType) })
}

func (t *Territory) SetBlockLimit(key string, n int64) error {
	return t.setLimit("set_block_limit", limits.KindBlock, key, n)
}

func (t *Territory) SetEntityLimit(entityType string, n int64) error {
	return t.setLimit("set_entity_limit", limits.KindEntity, entityType, n)
}

func (t *Territory) setLimit(op string, kind limits.Kind, key string, n int64) error {
	return t.mutate(op, func() ([]Delta, error) {
		if err := t.limits.SetLimit(kind, key, n); err != nil {
			return nil, err
		}
		return t.deltas(DeltaLimits), nil
	})
}

// RemoveBlockLimit drops the custom limit so key falls back to its default.
func (t *Territory) RemoveBlockLimit(key string) error {
	return t.removeLimit("remove_block_limit", limits.KindBlock, key)
}

func (t *Territory) RemoveEntityLimit(entityType string) error {
	return t.removeLimit("remove_entity_limit", limits.KindEntity, entityType)
}

func (t *Territory) removeLimit(op string, kind limits.Kind, key string) error {
	return t.mutate(op, func() ([]Delta, error) {
		if !t.limits.RemoveLimit(kind, key) {
			return nil, nil
		}
		return t.deltas(DeltaLimits), nil
	})
}

func (t *Territory) CustomBlockLimits() (map[string]int64, error) {
	return view(t, "custom_block_limits", func() map[string]int64 { return t.limits.CustomLimits(limits.KindBlock) })
}

func (t *Territory) CustomEntityLimits() (map[string]int64, error) {
	return view(t, "custom_entity_limits", func() map[string]int64 { return t.limits.CustomLimits(limits.KindEntity) })
}

// HasReachedBlockLimit checks the aggregate count of key, across equivalent
// keys, against its limit.
func (t *Territory) HasReachedBlockLimit(key string, added int64) (bool, error) {
	return view(t, "has_reached_block_limit", func() bool { return t.limits.HasReached(t.ledger, key, added) })
}

// HasReachedExactBlockLimit checks only the literal key's count and limit.
func (t *Territory) HasReachedExactBlockLimit(key string, added int64) (bool, error) {
	return view(t, "has_reached_exact_block_limit", func() bool { return t.limits.HasReachedExact(t.ledger, key, added) })
}

// HasReachedEntityLimit resolves once the live entity count is known. The
// future rejects only when the count query fails.
func (t *Territory) HasReachedEntityLimit(ctx context.Context, entityType string, added int64) *async.Future[bool] {
	c, err := t.EntityLimit(entityType)
	if err != nil {
		return async.Resolved(false, err)
	}
	return limits.CheckEntity(ctx, t.opts.Entities, t.bounds, entityType, c, added)
}

// HasReachedEntityLimits checks several entity types in parallel.
func (t *Territory) HasReachedEntityLimits(ctx context.Context, added int64, entityTypes ...string) *async.Future[map[string]bool] {
	caps, err := view(t, "entity_limits", func() map[string]limits.Cap {
		out := make(map[string]limits.Cap, len(entityTypes))
		for _, et := range entityTypes {
			out[et] = t.limits.Limit(limits.KindEntity, et)
		}
		return out
	})
	if err != nil {
		return async.Resolved[map[string]bool](nil, err)
	}
	return limits.CheckEntities(ctx, t.opts.Entities, t.bounds, caps, added)
}

func (t *Territory) TeamLimit() (limits.Cap, error) {
	return view(t, "team_limit", func() limits.Cap { return t.limits.TeamLimit() })
}

func (t *Territory) WarpsLimit() (limits.Cap, error) {
	return view(t, "warps_limit", func() limits.Cap { return t.limits.WarpsLimit() })
}

func (t *Territory) CoopLimit() (limits.Cap, error) {
	return view(t, "coop_limit", func() limits.Cap { return t.limits.CoopLimit() })
}

func (t *Territory) SetTeamLimit(c limits.Cap) error {
	return t.mutate("set_team_limit", func() ([]Delta, error) {
		t.limits.SetTeamLimit(c)
		return t.deltas(DeltaLimits), nil
	})
}

func (t *Territory) SetWarpsLimit(c limits.Cap) error {
	return t.mutate("set_warps_limit", func() ([]Delta, error) {
		t.limits.SetWarpsLimit(c)
		return t.deltas(DeltaLimits), nil
	})
}

func (t *Territory) SetCoopLimit(c limits.Cap) error {
	return t.mutate("set_coop_limit", func() ([]Delta, error) {
		t.limits.SetCoopLimit(c)
		return t.deltas(DeltaLimits), nil
	})
}

// TeamFull reports whether the team cannot take one more member.
func (t *Territory) TeamFull() (bool, error) {
	return view(t, "team_full", func() bool { return t.limits.TeamFull(t.members.TeamSize()) })
}
