package territory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skyclaim.ai/internal/territory/ledger"
	"skyclaim.ai/internal/territory/limits"
	"skyclaim.ai/internal/territory/region"
)

type gatedScanner struct {
	counts  map[string]int
	err     error
	release chan struct{}
	calls   atomic.Int32
}

func (s *gatedScanner) ScanRegion(ctx context.Context, _ region.Bounds) (map[string]int, error) {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out, nil
}

type entityCounts map[string]int

func (e entityCounts) CountEntities(_ context.Context, _ region.Bounds, entityType string) (int, error) {
	if n, ok := e[entityType]; ok {
		return n, nil
	}
	return 0, errors.New("entity type not tracked")
}

type memSink struct {
	mu     sync.Mutex
	deltas []Delta
	err    error
}

func (m *memSink) Save(_ context.Context, _ uuid.UUID, d Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deltas = append(m.deltas, d)
	return m.err
}

func (m *memSink) kinds() []DeltaKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DeltaKind, 0, len(m.deltas))
	for _, d := range m.deltas {
		out = append(out, d.Kind)
	}
	return out
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	t       *Territory
	owner   uuid.UUID
	scanner *gatedScanner
	sink    *memSink
}

func newFixture(tb testing.TB, mod func(*Options)) fixture {
	tb.Helper()
	f := fixture{
		owner:   uuid.New(),
		scanner: &gatedScanner{},
		sink:    &memSink{},
	}
	clock := &fixedClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts := Options{
		Owner:  f.owner,
		Bounds: region.Square("skyworld", region.Vec3{}, 50, 0, 255),
		Pricing: ledger.PriceTable{
			WorthByKey: map[string]decimal.Decimal{
				"DIAMOND_BLOCK": decimal.NewFromInt(150),
				"IRON_BLOCK":    decimal.NewFromInt(20),
			},
			LevelByKey: map[string]decimal.Decimal{
				"DIAMOND_BLOCK": decimal.NewFromInt(1),
			},
		},
		Limits: limits.Defaults{
			Blocks:   map[string]int64{"HOPPER": 10},
			Entities: map[string]int64{"COW": 4},
			Team:     4,
			Warps:    2,
			Coops:    -1,
		},
		Scanner:  f.scanner,
		Entities: entityCounts{"COW": 3, "PIG": 0},
		Sink:     f.sink,
		Logger:   zap.NewNop(),
		Clock:    clock.now,
	}
	if mod != nil {
		mod(&opts)
	}
	tr, err := New(opts)
	require.NoError(tb, err)
	f.t = tr
	tb.Cleanup(tr.Close)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
