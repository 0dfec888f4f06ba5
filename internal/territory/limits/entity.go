package limits

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"skyclaim.ai/internal/async"
	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/region"
)

var errNoCounter = errors.New("no entity counter configured")

// EntityCounter counts the live entities of one type inside a region. It may
// be slow and must not be called while holding the territory lock.
type EntityCounter interface {
	CountEntities(ctx context.Context, b region.Bounds, entityType string) (int, error)
}

// CheckEntity resolves to whether adding added entities of entityType would
// exceed c. It only fails when the count query fails, with a QueryFailed
// error. An unlimited cap resolves immediately without querying.
func CheckEntity(ctx context.Context, counter EntityCounter, b region.Bounds, entityType string, c Cap, added int64) *async.Future[bool] {
	if c.IsUnlimited() {
		return async.Resolved(false, nil)
	}
	if counter == nil {
		return async.Resolved(false, errs.QueryFailed("count_entities", errNoCounter))
	}
	return async.Go(func() (bool, error) {
		n, err := counter.CountEntities(ctx, b, entityType)
		if err != nil {
			return false, errs.QueryFailed("count_entities", err)
		}
		return c.Reached(int64(n), added), nil
	})
}

// CheckEntities runs CheckEntity for several types in parallel. The result
// maps each type to whether it is at its cap; the first failed query fails
// the whole check.
func CheckEntities(ctx context.Context, counter EntityCounter, b region.Bounds, caps map[string]Cap, added int64) *async.Future[map[string]bool] {
	return async.Go(func() (map[string]bool, error) {
		var mu sync.Mutex
		out := make(map[string]bool, len(caps))
		g, gctx := errgroup.WithContext(ctx)
		for entityType, c := range caps {
			entityType, c := entityType, c
			g.Go(func() error {
				reached, err := CheckEntity(gctx, counter, b, entityType, c, added).Wait(gctx)
				if err != nil {
					return err
				}
				mu.Lock()
				out[entityType] = reached
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})
}
