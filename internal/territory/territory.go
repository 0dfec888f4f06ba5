// Package territory is the aggregate behind one claimed region: its members
// and their privileges, the resource economy, limits, generator tables,
// warps, ratings, missions and settings.
//
// Every mutation is serialized by one lock per territory. Slow external work
// (region scans, entity counts, persistence) never runs under that lock: scans
// go through the single-flight Recalculate, entity checks return futures, and
// deltas are handed to the sink after the lock is released.
package territory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/logging"
	"skyclaim.ai/internal/territory/generator"
	"skyclaim.ai/internal/territory/identity"
	"skyclaim.ai/internal/territory/keys"
	"skyclaim.ai/internal/territory/ledger"
	"skyclaim.ai/internal/territory/limits"
	"skyclaim.ai/internal/territory/privilege"
	"skyclaim.ai/internal/territory/region"
)

const (
	DefaultRecalcTimeout = 2 * time.Minute
	DefaultSaveTimeout   = 10 * time.Second
)

type Options struct {
	// ID defaults to a fresh random id.
	ID     uuid.UUID
	Owner  uuid.UUID
	Bounds region.Bounds

	Policy      privilege.Policy
	Pricing     ledger.Pricing
	Equivalence keys.Equivalence
	Limits      limits.Defaults
	// Generators seeds the generator table of each environment.
	Generators map[Environment]map[string]int64
	Size       int

	Scanner  PhysicalScanner
	Entities EntityCounter
	Sink     PersistenceSink
	Logger   *zap.Logger
	Clock    func() time.Time

	RecalcTimeout time.Duration
	SaveTimeout   time.Duration
}

type Territory struct {
	mu sync.RWMutex

	id     uuid.UUID
	bounds region.Bounds
	opts   Options
	log    *zap.Logger
	now    func() time.Time

	// ctx bounds background scans; Disband and Close cancel it.
	ctx    context.Context
	cancel context.CancelFunc

	seq       uint64
	disbanded bool

	createdAt      time.Time
	lastTimeUpdate time.Time

	members    *identity.Registry
	privileges *privilege.Resolver
	ledger     *ledger.Ledger
	limits     *limits.Engine
	generators map[Environment]*generator.Table

	warps    map[string]Warp
	ratings  map[uuid.UUID]Rating
	missions map[string]int
	flags    map[Flag]struct{}
	profile  Profile
	homes    homes
	upgrades upgrades
}

// New claims a fresh territory for opts.Owner: no members, zero counts and
// zero worth.
func New(opts Options) (*Territory, error) {
	opts = withDefaults(opts)
	reg, err := identity.NewRegistry(opts.Owner, opts.Clock)
	if err != nil {
		return nil, err
	}
	if opts.Size < 0 {
		return nil, errs.Validation("new_territory", "size must not be negative, got %d", opts.Size)
	}
	t := newTerritory(opts)
	t.createdAt = t.now()
	t.lastTimeUpdate = t.createdAt
	t.attach(reg, ledger.New(opts.Pricing, opts.Equivalence))
	for env, amounts := range opts.Generators {
		t.generators[env] = generator.FromAmounts(amounts)
	}
	if opts.Size > 0 {
		t.upgrades.size = opts.Size
	}
	t.log.Info("territory claimed", zap.String("owner", opts.Owner.String()))
	return t, nil
}

func withDefaults(opts Options) Options {
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	if opts.Policy.Empty() {
		opts.Policy = privilege.DefaultPolicy()
	}
	if opts.Equivalence == nil {
		opts.Equivalence = keys.Exact{}
	}
	if opts.Pricing == nil {
		opts.Pricing = ledger.PriceTable{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.RecalcTimeout <= 0 {
		opts.RecalcTimeout = DefaultRecalcTimeout
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = DefaultSaveTimeout
	}
	return opts
}

func newTerritory(opts Options) *Territory {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Territory{
		id:     opts.ID,
		bounds: opts.Bounds,
		opts:   opts,
		log:    logging.OrNop(opts.Logger).With(zap.String("territory_id", opts.ID.String())),
		now:    opts.Clock,
		ctx:    ctx,
		cancel: cancel,
	}
	t.reset()
	return t
}

// reset empties every owned sub-collection.
func (t *Territory) reset() {
	t.members = nil
	t.privileges = nil
	t.ledger = nil
	t.limits = limits.New(t.opts.Limits, t.opts.Equivalence)
	t.generators = map[Environment]*generator.Table{}
	t.warps = map[string]Warp{}
	t.ratings = map[uuid.UUID]Rating{}
	t.missions = map[string]int{}
	t.flags = map[Flag]struct{}{}
	t.profile = Profile{}
	t.homes = newHomes()
	t.upgrades = newUpgrades()
}

func (t *Territory) attach(reg *identity.Registry, l *ledger.Ledger) {
	t.members = reg
	t.privileges = privilege.NewResolver(t.opts.Policy, reg)
	t.ledger = l
}

func (t *Territory) ID() uuid.UUID { return t.id }

func (t *Territory) Bounds() region.Bounds { return t.bounds }

func (t *Territory) Disbanded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.disbanded
}

// Disband discards every sub-state at once and marks the territory terminal.
// Waiters of an in-flight recalculation are released with a Disbanded error.
// Disbanding twice is a no-op.
func (t *Territory) Disband() {
	t.mu.Lock()
	if t.disbanded {
		t.mu.Unlock()
		return
	}
	var waiters []ledger.Callback
	if t.ledger != nil {
		waiters = t.ledger.AbortRecalc()
	}
	t.reset()
	t.disbanded = true
	d := t.delta(DeltaDisband)
	t.mu.Unlock()

	t.cancel()
	res := ledger.RecalcResult{Err: errs.Disbanded("recalculate")}
	for _, cb := range waiters {
		cb(res)
	}
	t.log.Info("territory disbanded")
	t.save([]Delta{d})
}

// Close cancels in-flight background scans without disbanding.
func (t *Territory) Close() { t.cancel() }

// mutate runs fn under the write lock and hands the deltas it returns to the
// sink once the lock is released.
func (t *Territory) mutate(op string, fn func() ([]Delta, error)) error {
	t.mu.Lock()
	if t.disbanded {
		t.mu.Unlock()
		return errs.Disbanded(op)
	}
	deltas, err := fn()
	t.mu.Unlock()
	if err != nil {
		return err
	}
	t.save(deltas)
	return nil
}

// view runs fn under the read lock.
func view[T any](t *Territory, op string, fn func() T) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.disbanded {
		var zero T
		return zero, errs.Disbanded(op)
	}
	return fn(), nil
}

// delta snapshots the sub-state named by kind. Callers hold the write lock.
func (t *Territory) delta(kind DeltaKind) Delta {
	t.seq++
	return Delta{Seq: t.seq, Kind: kind, At: t.now(), Payload: t.payload(kind)}
}

func (t *Territory) deltas(kinds ...DeltaKind) []Delta {
	out := make([]Delta, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, t.delta(k))
	}
	return out
}

func (t *Territory) save(deltas []Delta) {
	if t.opts.Sink == nil || len(deltas) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.opts.SaveTimeout)
	defer cancel()
	for _, d := range deltas {
		if err := t.opts.Sink.Save(ctx, t.id, d); err != nil {
			t.log.Warn("persist delta failed",
				zap.String("kind", string(d.Kind)),
				zap.Uint64("seq", d.Seq),
				zap.Error(errs.QueryFailed("save_delta", err)))
		}
	}
}

func (t *Territory) CreatedAt() time.Time { return t.createdAt }

func (t *Territory) LastTimeUpdate() (time.Time, error) {
	return view(t, "last_time_update", func() time.Time { return t.lastTimeUpdate })
}

// UpdateLastTime marks the territory as active now.
func (t *Territory) UpdateLastTime() error {
	return t.mutate("update_last_time", func() ([]Delta, error) {
		t.lastTimeUpdate = t.now()
		return t.deltas(DeltaProfile), nil
	})
}
