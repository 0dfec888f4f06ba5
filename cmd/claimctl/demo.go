package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skyclaim.ai/internal/config"
	"skyclaim.ai/internal/persistence"
	"skyclaim.ai/internal/persistence/indexdb"
	"skyclaim.ai/internal/persistence/journal"
	"skyclaim.ai/internal/persistence/rediskv"
	"skyclaim.ai/internal/persistence/snapshot"
	"skyclaim.ai/internal/territory"
	"skyclaim.ai/internal/territory/identity"
	"skyclaim.ai/internal/territory/privilege"
	"skyclaim.ai/internal/territory/region"
)

func newDemoCmd(a *app) *cobra.Command {
	var withRedis bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Claim a territory, run a scripted session and snapshot it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.rules()
			if err != nil {
				return err
			}
			sinks, closeSinks, err := openSinks(a, withRedis)
			if err != nil {
				return err
			}
			defer closeSinks()
			return runDemo(cmd.Context(), cmd.OutOrStdout(), a, cfg, sinks)
		},
	}
	cmd.Flags().BoolVar(&withRedis, "redis", false, "also mirror deltas to CLAIM_REDIS_ADDR")
	return cmd
}

type sinks struct {
	index *indexdb.SQLiteIndex
	all   territory.PersistenceSink
}

func openSinks(a *app, withRedis bool) (sinks, func(), error) {
	j := journal.Open(a.env.JournalDir())
	idx, err := indexdb.OpenSQLite(a.env.IndexPath())
	if err != nil {
		_ = j.Close()
		return sinks{}, nil, err
	}
	closers := []io.Closer{j, idx}
	list := []territory.PersistenceSink{j, idx}
	if withRedis {
		if a.env.RedisAddr == "" {
			_ = idx.Close()
			_ = j.Close()
			return sinks{}, nil, fmt.Errorf("--redis needs CLAIM_REDIS_ADDR")
		}
		rs, err := rediskv.Dial(a.env.RedisAddr, a.env.RedisDB, rediskv.Options{})
		if err != nil {
			_ = idx.Close()
			_ = j.Close()
			return sinks{}, nil, err
		}
		closers = append(closers, rs)
		list = append(list, rs)
	}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				a.log.Warn("close sink failed", zap.Error(err))
			}
		}
	}
	return sinks{index: idx, all: persistence.Multi(list...)}, closeAll, nil
}

func runDemo(ctx context.Context, out io.Writer, a *app, cfg config.Config, s sinks) error {
	opts, err := cfg.TerritoryOptions()
	if err != nil {
		return err
	}
	world := newMemWorld()
	owner := uuid.New()
	opts.Owner = owner
	opts.Bounds = region.Square("skyworld", region.Vec3{}, cfg.Size, 0, 255)
	opts.Scanner = world
	opts.Entities = world
	opts.Sink = s.all
	opts.Logger = a.log

	t, err := territory.New(opts)
	if err != nil {
		return err
	}
	defer t.Close()
	fmt.Fprintf(out, "claimed %s for %s\n", t.ID(), owner)

	builder, helper := uuid.New(), uuid.New()
	steps := []struct {
		name string
		fn   func() error
	}{
		{"invite builder", func() error { return t.Invite(builder) }},
		{"accept invite", func() error { return t.AcceptInvite(builder) }},
		{"promote builder", func() error { return t.SetRole(builder, identity.RoleModerator) }},
		{"coop helper", func() error { return t.AddCoop(helper) }},
		{"let helper build", func() error {
			return t.SetOverride(privilege.PlayerSubject(helper), privilege.Build, true)
		}},
		{"deposit", func() error { return t.Deposit(decimal.NewFromInt(250)) }},
		{"withdraw", func() error { return t.Withdraw(decimal.NewFromInt(100)) }},
		{"set home warp", func() error {
			return t.SetWarp("home", region.Location{World: "skyworld", Y: 100}, false)
		}},
		{"rate", func() error { return t.SetRating(helper, territory.RatingFive) }},
		{"generator", func() error { return t.SetGeneratorPercentage(territory.EnvNormal, "DIAMOND_ORE", 10) }},
	}
	for _, st := range steps {
		if err := st.fn(); err != nil {
			return fmt.Errorf("%s: %w", st.name, err)
		}
	}

	for key, n := range map[string]int{"DIAMOND_BLOCK": 12, "IRON_BLOCK": 40, "HOPPER": 6} {
		world.place(key, n)
		if err := t.RecordPlacement(key, int64(n), true); err != nil {
			return err
		}
	}
	world.spawn("COW", 12)

	ok, err := t.HasPrivilege(helper, privilege.Build)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "helper may build: %v\n", ok)

	// Placements the listener missed only show up after a full scan.
	world.place("EMERALD_BLOCK", 3)
	rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	res, err := t.RecalculateWait(rctx, owner)
	if err != nil {
		return err
	}
	if res.Err != nil {
		return res.Err
	}
	fmt.Fprintf(out, "recalculated worth=%s level=%s\n", res.Worth, res.Level)

	cows, err := t.HasReachedEntityLimit(rctx, "COW", 1).Wait(rctx)
	if err != nil {
		return err
	}
	hoppers, err := t.HasReachedBlockLimit("HOPPER", 1)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "cow limit reached: %v, hopper limit reached: %v\n", cows, hoppers)

	path, err := snapshot.Take(t, a.env.SnapshotDir())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "snapshot %s\n", path)

	if err := s.index.Sync(rctx); err != nil {
		return err
	}
	latest, err := s.index.Latest(rctx, t.ID())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "index holds %d delta kinds; stats %+v\n", len(latest), s.index.Stats())
	return nil
}
