package territory

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/identity"
	"skyclaim.ai/internal/territory/limits"
	"skyclaim.ai/internal/territory/privilege"
	"skyclaim.ai/internal/territory/region"
)

func TestWarpsRespectLimit(t *testing.T) {
	f := newFixture(t, nil)
	tr := f.t
	home := region.Location{World: "skyworld", X: 0.5, Y: 70, Z: 0.5}
	farm := region.Location{World: "skyworld", X: 12.2, Y: 64, Z: -3.9}

	require.NoError(t, tr.SetWarp("Home", home, false))
	require.NoError(t, tr.SetWarp("farm", farm, true))
	err := tr.SetWarp("mine", home, false)
	assert.True(t, errors.Is(err, errs.ErrInvalidState))
	assert.True(t, errors.Is(tr.SetWarp("  ", home, false), errs.ErrValidation))

	// moving an existing warp needs no free slot
	require.NoError(t, tr.SetWarp("HOME", farm, false))
	slots, err := tr.HasMoreWarpSlots()
	require.NoError(t, err)
	assert.False(t, slots)

	name, err := tr.DeleteWarpAt(region.Location{World: "skyworld", X: 12.9, Y: 64.5, Z: -3.1})
	require.NoError(t, err)
	assert.NotEmpty(t, name)

	warps, err := tr.Warps()
	require.NoError(t, err)
	require.Len(t, warps, 1)

	deleted, err := tr.DeleteWarp(warps[0].Name)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = tr.DeleteWarp("nothing")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, tr.SetWarpsLimit(limits.Unlimited))
	slots, err = tr.HasMoreWarpSlots()
	require.NoError(t, err)
	assert.True(t, slots)
}

func TestRatings(t *testing.T) {
	f := newFixture(t, nil)
	tr := f.t
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, tr.SetRating(a, RatingFive))
	require.NoError(t, tr.SetRating(b, RatingTwo))
	require.NoError(t, tr.SetRating(c, RatingTwo))

	avg, err := tr.AverageRating()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, avg, 1e-9)

	require.NoError(t, tr.RemoveRating(c))
	n, err := tr.RatingsCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	avg, err = tr.AverageRating()
	require.NoError(t, err)
	assert.InDelta(t, 3.5, avg, 1e-9)

	assert.True(t, errors.Is(tr.SetRating(a, Rating(9)), errs.ErrValidation))
	r, err := tr.RatingOf(a)
	require.NoError(t, err)
	assert.Equal(t, RatingFive, r)
}

func TestMissions(t *testing.T) {
	f := newFixture(t, nil)
	tr := f.t
	once := Mission{Name: "Farmer"}
	thrice := Mission{Name: "Miner", Repeatable: true, MaxCompletions: 3}
	forever := Mission{Name: "Fisher", Repeatable: true}

	ok, err := tr.CanCompleteAgain(once)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, tr.CompleteMission("farmer"))
	ok, err = tr.CanCompleteAgain(once)
	require.NoError(t, err)
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		require.NoError(t, tr.CompleteMission(thrice.Name))
		require.NoError(t, tr.CompleteMission(forever.Name))
	}
	ok, _ = tr.CanCompleteAgain(thrice)
	assert.False(t, ok)
	ok, _ = tr.CanCompleteAgain(forever)
	assert.True(t, ok)

	require.NoError(t, tr.ResetMission(thrice.Name))
	n, err := tr.MissionCompletions("MINER")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, tr.ResetMission("farmer"))
	done, err := tr.HasCompletedMission("farmer")
	require.NoError(t, err)
	assert.False(t, done)

	completed, err := tr.CompletedMissions()
	require.NoError(t, err)
	assert.Equal(t, []string{"fisher", "miner"}, completed)
}

func TestFlagsAreOneSet(t *testing.T) {
	f := newFixture(t, nil)
	tr := f.t
	require.NoError(t, tr.SetLocked(true))
	require.NoError(t, tr.SetLocked(true))
	require.NoError(t, tr.SetFlag("pvp", true))
	require.NoError(t, tr.SetFlag(FlagNether, true))

	locked, err := tr.HasFlag("locked")
	require.NoError(t, err)
	assert.True(t, locked)
	nether, err := tr.NetherEnabled()
	require.NoError(t, err)
	assert.True(t, nether)

	flags, err := tr.Flags()
	require.NoError(t, err)
	assert.Equal(t, []Flag{FlagLocked, FlagNether, "PVP"}, flags)

	require.NoError(t, tr.SetNetherEnabled(false))
	nether, _ = tr.NetherEnabled()
	assert.False(t, nether)
	assert.Equal(t, 4, countKind(f.sink, DeltaFlags), "idempotent enable emits nothing")
}

func countKind(s *memSink, kind DeltaKind) int {
	n := 0
	for _, k := range s.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func TestGeneratorPerEnvironment(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Generators = map[Environment]map[string]int64{
			EnvNormal: {"COBBLESTONE": 10, "IRON_ORE": 10},
		}
	})
	tr := f.t
	require.NoError(t, tr.SetGeneratorPercentage(EnvNormal, "IRON_ORE", 50))
	pct, err := tr.GeneratorPercentage(EnvNormal, "IRON_ORE")
	require.NoError(t, err)
	assert.InDelta(t, 50, pct, 1)

	require.NoError(t, tr.SetGeneratorPercentage(EnvNether, "QUARTZ_ORE", 100))
	arr, err := tr.GeneratorArray(EnvNether)
	require.NoError(t, err)
	assert.Equal(t, []string{"QUARTZ_ORE"}, arr)

	err = tr.SetGeneratorPercentage("MOON", "STONE", 10)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	err = tr.SetGeneratorPercentage(EnvNormal, "STONE", 120)
	assert.True(t, errors.Is(err, errs.ErrValidation))

	require.NoError(t, tr.ClearGenerator(EnvNormal))
	amounts, err := tr.GeneratorAmounts(EnvNormal)
	require.NoError(t, err)
	assert.Empty(t, amounts)
}

func TestUpgradesAndHomes(t *testing.T) {
	f := newFixture(t, nil)
	tr := f.t

	lvl, err := tr.UpgradeLevel("hoppers-limit")
	require.NoError(t, err)
	assert.Equal(t, 1, lvl)
	require.NoError(t, tr.SetUpgradeLevel("hoppers-limit", 3))
	lvl, _ = tr.UpgradeLevel("HOPPERS-LIMIT")
	assert.Equal(t, 3, lvl)
	assert.True(t, errors.Is(tr.SetUpgradeLevel("x", 0), errs.ErrValidation))

	assert.True(t, errors.Is(tr.SetSize(0), errs.ErrValidation))
	require.NoError(t, tr.SetSize(75))
	require.NoError(t, tr.SetMultipliers(Multipliers{CropGrowth: 2, SpawnerRates: 1.5, MobDrops: 1}))
	assert.True(t, errors.Is(tr.SetMultipliers(Multipliers{CropGrowth: -1}), errs.ErrValidation))

	spawn := region.Location{World: "skyworld", X: 0.5, Y: 100, Z: 0.5}
	require.NoError(t, tr.SetTeleportLocation(EnvNormal, spawn))
	loc, ok, err := tr.TeleportLocation(EnvNormal)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, spawn, loc)
	_, ok, _ = tr.TeleportLocation(EnvEnd)
	assert.False(t, ok)

	require.NoError(t, tr.SetVisitorsLocation(&spawn))
	require.NoError(t, tr.SetVisitorsLocation(nil))
	_, ok, _ = tr.VisitorsLocation()
	assert.False(t, ok)

	require.NoError(t, tr.SetSchematicGenerated(EnvNether, true))
	gen, _ := tr.WasSchematicGenerated(EnvNether)
	assert.True(t, gen)
}

func TestStateRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	tr := f.t
	b, c := uuid.New(), uuid.New()
	require.NoError(t, tr.AddMember(b, identity.RoleModerator))
	require.NoError(t, tr.AddCoop(c))
	require.NoError(t, tr.SetOverride(privilege.PlayerSubject(b), privilege.WithdrawMoney, true))
	require.NoError(t, tr.SetOverride(privilege.RoleSubject(identity.RoleMember), privilege.Build, false))
	require.NoError(t, tr.RecordPlacement("DIAMOND_BLOCK", 4, true))
	require.NoError(t, tr.Deposit(dec("12.34")))
	require.NoError(t, tr.SetBonusLevel(dec("2")))
	require.NoError(t, tr.SetBlockLimit("HOPPER", 30))
	require.NoError(t, tr.SetGeneratorAmount(EnvNormal, "COBBLESTONE", 9))
	require.NoError(t, tr.SetWarp("home", region.Location{World: "skyworld", Y: 80}, true))
	require.NoError(t, tr.SetRating(c, RatingFour))
	require.NoError(t, tr.CompleteMission("farmer"))
	require.NoError(t, tr.SetLocked(true))
	require.NoError(t, tr.SetProfile(Profile{Name: "Atlantis", Biome: "PLAINS"}))
	require.NoError(t, tr.SetSchematicGenerated(EnvNormal, true))
	require.NoError(t, tr.SetSize(100))

	st, err := tr.State()
	require.NoError(t, err)
	raw, err := json.Marshal(st)
	require.NoError(t, err)
	var decoded State
	require.NoError(t, json.Unmarshal(raw, &decoded))

	back, err := Restore(decoded, Options{Pricing: tr.opts.Pricing, Limits: tr.opts.Limits})
	require.NoError(t, err)
	defer back.Close()

	again, err := back.State()
	require.NoError(t, err)
	assert.Equal(t, st.ID, again.ID)
	assert.Equal(t, st.Members.Owner, again.Members.Owner)
	assert.Equal(t, st.Overrides, again.Overrides)
	assert.Equal(t, st.Limits, again.Limits)
	assert.Equal(t, st.Generators, again.Generators)
	assert.Equal(t, st.Warps, again.Warps)
	assert.Equal(t, st.Ratings, again.Ratings)
	assert.Equal(t, st.Flags, again.Flags)
	assert.Equal(t, st.Profile, again.Profile)
	assert.Equal(t, st.Homes, again.Homes)
	assert.Equal(t, st.Upgrades, again.Upgrades)

	w1, _ := tr.Worth()
	w2, err := back.Worth()
	require.NoError(t, err)
	assert.True(t, w1.Equal(w2), "%s != %s", w1, w2)

	ok, err := back.HasPrivilege(b, privilege.WithdrawMoney)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRestoreRejectsBadState(t *testing.T) {
	_, err := Restore(State{Version: 99}, Options{})
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, err = Restore(State{Version: StateVersion}, Options{})
	assert.True(t, errors.Is(err, errs.ErrValidation))
}
