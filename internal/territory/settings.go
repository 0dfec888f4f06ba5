package territory

import (
	"math"
	"sort"
	"strings"

	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/region"
)

// Flag is a named boolean setting. Enabling or disabling is idempotent.
type Flag string

const (
	FlagNether  Flag = "NETHER_ENABLED"
	FlagEnd     Flag = "END_ENABLED"
	FlagLocked  Flag = "LOCKED"
	FlagIgnored Flag = "IGNORED"
)

func normalizeFlag(f Flag) Flag { return Flag(strings.ToUpper(strings.TrimSpace(string(f)))) }

func (t *Territory) SetFlag(f Flag, enabled bool) error {
	const op = "set_flag"
	return t.mutate(op, func() ([]Delta, error) {
		f = normalizeFlag(f)
		if f == "" {
			return nil, errs.Validation(op, "flag name must not be empty")
		}
		if _, has := t.flags[f]; has == enabled {
			return nil, nil
		}
		if enabled {
			t.flags[f] = struct{}{}
		} else {
			delete(t.flags, f)
		}
		return t.deltas(DeltaFlags), nil
	})
}

func (t *Territory) HasFlag(f Flag) (bool, error) {
	return view(t, "has_flag", func() bool {
		_, ok := t.flags[normalizeFlag(f)]
		return ok
	})
}

// Flags lists the enabled flags, sorted.
func (t *Territory) Flags() ([]Flag, error) {
	return view(t, "flags", t.flagList)
}

func (t *Territory) flagList() []Flag {
	out := make([]Flag, 0, len(t.flags))
	for f := range t.flags {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *Territory) SetNetherEnabled(v bool) error { return t.SetFlag(FlagNether, v) }
func (t *Territory) SetEndEnabled(v bool) error    { return t.SetFlag(FlagEnd, v) }
func (t *Territory) SetLocked(v bool) error        { return t.SetFlag(FlagLocked, v) }
func (t *Territory) SetIgnored(v bool) error       { return t.SetFlag(FlagIgnored, v) }

func (t *Territory) NetherEnabled() (bool, error) { return t.HasFlag(FlagNether) }
func (t *Territory) EndEnabled() (bool, error)    { return t.HasFlag(FlagEnd) }
func (t *Territory) Locked() (bool, error)        { return t.HasFlag(FlagLocked) }
func (t *Territory) Ignored() (bool, error)       { return t.HasFlag(FlagIgnored) }

// Profile is the descriptive, player-editable part of a territory.
type Profile struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Discord     string `json:"discord,omitempty"`
	Paypal      string `json:"paypal,omitempty"`
	Biome       string `json:"biome,omitempty"`
	Schematic   string `json:"schematic,omitempty"`
}

func (t *Territory) Profile() (Profile, error) {
	return view(t, "profile", func() Profile { return t.profile })
}

func (t *Territory) SetProfile(p Profile) error {
	return t.mutate("set_profile", func() ([]Delta, error) {
		p.Name = strings.TrimSpace(p.Name)
		t.profile = p
		return t.deltas(DeltaProfile), nil
	})
}

type homes struct {
	teleport  map[Environment]region.Location
	visitors  *region.Location
	generated map[Environment]bool
}

func newHomes() homes {
	return homes{
		teleport:  map[Environment]region.Location{},
		generated: map[Environment]bool{},
	}
}

func (t *Territory) SetTeleportLocation(env Environment, loc region.Location) error {
	const op = "set_teleport_location"
	return t.mutate(op, func() ([]Delta, error) {
		if !env.valid() {
			return nil, errs.Validation(op, "unknown environment %q", env)
		}
		t.homes.teleport[env] = loc
		return t.deltas(DeltaHomes), nil
	})
}

func (t *Territory) TeleportLocation(env Environment) (region.Location, bool, error) {
	var ok bool
	loc, err := view(t, "teleport_location", func() region.Location {
		var loc region.Location
		loc, ok = t.homes.teleport[env]
		return loc
	})
	return loc, ok, err
}

// SetVisitorsLocation sets the spot visitors arrive at; nil clears it.
func (t *Territory) SetVisitorsLocation(loc *region.Location) error {
	return t.mutate("set_visitors_location", func() ([]Delta, error) {
		if loc == nil {
			t.homes.visitors = nil
		} else {
			l := *loc
			t.homes.visitors = &l
		}
		return t.deltas(DeltaHomes), nil
	})
}

func (t *Territory) VisitorsLocation() (region.Location, bool, error) {
	var ok bool
	loc, err := view(t, "visitors_location", func() region.Location {
		if t.homes.visitors == nil {
			return region.Location{}
		}
		ok = true
		return *t.homes.visitors
	})
	return loc, ok, err
}

func (t *Territory) SetSchematicGenerated(env Environment, generated bool) error {
	const op = "set_schematic_generated"
	return t.mutate(op, func() ([]Delta, error) {
		if !env.valid() {
			return nil, errs.Validation(op, "unknown environment %q", env)
		}
		if generated {
			t.homes.generated[env] = true
		} else {
			delete(t.homes.generated, env)
		}
		return t.deltas(DeltaHomes), nil
	})
}

func (t *Territory) WasSchematicGenerated(env Environment) (bool, error) {
	return view(t, "was_schematic_generated", func() bool { return t.homes.generated[env] })
}

// Multipliers scale the territory's crop growth, spawner rates and mob drops.
type Multipliers struct {
	CropGrowth   float64 `json:"crop_growth"`
	SpawnerRates float64 `json:"spawner_rates"`
	MobDrops     float64 `json:"mob_drops"`
}

type upgrades struct {
	levels      map[string]int
	multipliers Multipliers
	size        int
}

func newUpgrades() upgrades {
	return upgrades{
		levels:      map[string]int{},
		multipliers: Multipliers{CropGrowth: 1, SpawnerRates: 1, MobDrops: 1},
		size:        1,
	}
}

func upgradeKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// UpgradeLevel is 1 for upgrades never bought.
func (t *Territory) UpgradeLevel(name string) (int, error) {
	return view(t, "upgrade_level", func() int {
		if lvl, ok := t.upgrades.levels[upgradeKey(name)]; ok {
			return lvl
		}
		return 1
	})
}

func (t *Territory) SetUpgradeLevel(name string, level int) error {
	const op = "set_upgrade_level"
	return t.mutate(op, func() ([]Delta, error) {
		k := upgradeKey(name)
		if k == "" {
			return nil, errs.Validation(op, "upgrade name must not be empty")
		}
		if level < 1 {
			return nil, errs.Validation(op, "upgrade level must be >= 1, got %d", level)
		}
		if level == 1 {
			delete(t.upgrades.levels, k)
		} else {
			t.upgrades.levels[k] = level
		}
		return t.deltas(DeltaUpgrades), nil
	})
}

func (t *Territory) Multipliers() (Multipliers, error) {
	return view(t, "multipliers", func() Multipliers { return t.upgrades.multipliers })
}

func (t *Territory) SetMultipliers(m Multipliers) error {
	const op = "set_multipliers"
	return t.mutate(op, func() ([]Delta, error) {
		for _, v := range []float64{m.CropGrowth, m.SpawnerRates, m.MobDrops} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, errs.Validation(op, "multipliers must be finite and >= 0, got %v", v)
			}
		}
		t.upgrades.multipliers = m
		return t.deltas(DeltaUpgrades), nil
	})
}

func (t *Territory) Size() (int, error) {
	return view(t, "size", func() int { return t.upgrades.size })
}

func (t *Territory) SetSize(size int) error {
	const op = "set_size"
	return t.mutate(op, func() ([]Delta, error) {
		if size < 1 {
			return nil, errs.Validation(op, "size must be >= 1, got %d", size)
		}
		t.upgrades.size = size
		return t.deltas(DeltaUpgrades), nil
	})
}
