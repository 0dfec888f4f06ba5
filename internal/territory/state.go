package territory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/generator"
	"skyclaim.ai/internal/territory/identity"
	"skyclaim.ai/internal/territory/ledger"
	"skyclaim.ai/internal/territory/limits"
	"skyclaim.ai/internal/territory/privilege"
	"skyclaim.ai/internal/territory/region"
)

// StateVersion is bumped when State changes shape.
const StateVersion = 1

// State is the full serializable form of a territory. Players inside and
// adjustments made with persist=false are runtime-only and not part of it.
type State struct {
	Version        int                              `json:"version"`
	ID             uuid.UUID                        `json:"id"`
	Seq            uint64                           `json:"seq"`
	CreatedAt      time.Time                        `json:"created_at"`
	LastTimeUpdate time.Time                        `json:"last_time_update"`
	Bounds         region.Bounds                    `json:"bounds"`
	Members        identity.State                   `json:"members"`
	Overrides      []privilege.Override             `json:"overrides,omitempty"`
	Ledger         ledger.State                     `json:"ledger"`
	Limits         LimitsState                      `json:"limits"`
	Generators     map[Environment]map[string]int64 `json:"generators,omitempty"`
	Warps          []Warp                           `json:"warps,omitempty"`
	Ratings        map[uuid.UUID]Rating             `json:"ratings,omitempty"`
	Missions       map[string]int                   `json:"missions,omitempty"`
	Flags          []Flag                           `json:"flags,omitempty"`
	Profile        Profile                          `json:"profile"`
	Homes          HomesState                       `json:"homes"`
	Upgrades       UpgradesState                    `json:"upgrades"`
}

// LimitsState holds custom limits only; defaults come from configuration.
// Team, warp and co-op limits use -1 for unlimited.
type LimitsState struct {
	Blocks   map[string]int64 `json:"blocks,omitempty"`
	Entities map[string]int64 `json:"entities,omitempty"`
	Team     int64            `json:"team"`
	Warps    int64            `json:"warps"`
	Coops    int64            `json:"coops"`
}

type HomesState struct {
	Teleport  map[Environment]region.Location `json:"teleport,omitempty"`
	Visitors  *region.Location                `json:"visitors,omitempty"`
	Generated []Environment                   `json:"generated,omitempty"`
}

type UpgradesState struct {
	Levels      map[string]int `json:"levels,omitempty"`
	Multipliers Multipliers    `json:"multipliers"`
	Size        int            `json:"size"`
}

// WorthState is the payload of worth deltas.
type WorthState struct {
	Worth decimal.Decimal `json:"worth"`
	Level decimal.Decimal `json:"level"`
}

func (t *Territory) State() (State, error) {
	return view(t, "state", t.state)
}

func (t *Territory) state() State {
	return State{
		Version:        StateVersion,
		ID:             t.id,
		Seq:            t.seq,
		CreatedAt:      t.createdAt,
		LastTimeUpdate: t.lastTimeUpdate,
		Bounds:         t.bounds,
		Members:        t.members.State(),
		Overrides:      t.privileges.All(),
		Ledger:         t.ledger.State(),
		Limits:         t.limitsState(),
		Generators:     t.generatorAmounts(),
		Warps:          t.warpList(),
		Ratings:        t.ratingsCopy(),
		Missions:       t.missionsCopy(),
		Flags:          t.flagList(),
		Profile:        t.profile,
		Homes:          t.homesState(),
		Upgrades:       t.upgradesState(),
	}
}

func (t *Territory) limitsState() LimitsState {
	return LimitsState{
		Blocks:   t.limits.CustomLimits(limits.KindBlock),
		Entities: t.limits.CustomLimits(limits.KindEntity),
		Team:     t.limits.TeamLimit().Int64(),
		Warps:    t.limits.WarpsLimit().Int64(),
		Coops:    t.limits.CoopLimit().Int64(),
	}
}

func (t *Territory) homesState() HomesState {
	s := HomesState{Teleport: make(map[Environment]region.Location, len(t.homes.teleport))}
	for env, loc := range t.homes.teleport {
		s.Teleport[env] = loc
	}
	if t.homes.visitors != nil {
		l := *t.homes.visitors
		s.Visitors = &l
	}
	for env := range t.homes.generated {
		s.Generated = append(s.Generated, env)
	}
	sort.Slice(s.Generated, func(i, j int) bool { return s.Generated[i] < s.Generated[j] })
	return s
}

func (t *Territory) upgradesState() UpgradesState {
	levels := make(map[string]int, len(t.upgrades.levels))
	for k, v := range t.upgrades.levels {
		levels[k] = v
	}
	return UpgradesState{Levels: levels, Multipliers: t.upgrades.multipliers, Size: t.upgrades.size}
}

// payload snapshots the sub-state a delta of kind carries.
func (t *Territory) payload(kind DeltaKind) any {
	switch kind {
	case DeltaMembers:
		return t.members.State()
	case DeltaPrivileges:
		return t.privileges.All()
	case DeltaBlocks:
		return t.ledger.PersistedCounts()
	case DeltaBank:
		return t.ledger.Bank()
	case DeltaBonus:
		return WorthState{Worth: t.ledger.BonusWorth(), Level: t.ledger.BonusLevel()}
	case DeltaWorth:
		return WorthState{Worth: t.ledger.Worth(), Level: t.ledger.Level()}
	case DeltaLimits:
		return t.limitsState()
	case DeltaGenerator:
		return t.generatorAmounts()
	case DeltaWarps:
		return t.warpList()
	case DeltaRatings:
		return t.ratingsCopy()
	case DeltaMissions:
		return t.missionsCopy()
	case DeltaFlags:
		return t.flagList()
	case DeltaProfile:
		return struct {
			Profile        Profile   `json:"profile"`
			LastTimeUpdate time.Time `json:"last_time_update"`
		}{t.profile, t.lastTimeUpdate}
	case DeltaHomes:
		return t.homesState()
	case DeltaUpgrades:
		return t.upgradesState()
	default:
		return nil
	}
}

// Restore rebuilds a territory from s. Collaborators, policy, pricing and
// default limits come from opts; opts.ID and opts.Owner are ignored.
func Restore(s State, opts Options) (*Territory, error) {
	const op = "restore_territory"
	if s.Version != StateVersion {
		return nil, errs.Validation(op, "unsupported state version %d", s.Version)
	}
	if s.ID == uuid.Nil {
		return nil, errs.Validation(op, "territory id must not be nil")
	}
	opts.ID = s.ID
	opts.Owner = s.Members.Owner
	opts.Bounds = s.Bounds
	opts = withDefaults(opts)

	reg, err := identity.RestoreRegistry(s.Members, opts.Clock)
	if err != nil {
		return nil, err
	}
	t := newTerritory(opts)
	t.seq = s.Seq
	t.createdAt = s.CreatedAt
	t.lastTimeUpdate = s.LastTimeUpdate
	t.attach(reg, ledger.Restore(s.Ledger, opts.Pricing, opts.Equivalence))
	if err := t.privileges.Restore(s.Overrides); err != nil {
		return nil, err
	}
	if err := t.restoreLimits(s.Limits); err != nil {
		return nil, err
	}
	for env, amounts := range s.Generators {
		if !env.valid() {
			return nil, errs.Validation(op, "unknown environment %q", env)
		}
		t.generators[env] = generator.FromAmounts(amounts)
	}
	for _, w := range s.Warps {
		k := warpKey(w.Name)
		if k == "" {
			return nil, errs.Validation(op, "warp name must not be empty")
		}
		t.warps[k] = w
	}
	for id, r := range s.Ratings {
		if !r.Valid() {
			return nil, errs.Validation(op, "rating must be within 0..5, got %d", int(r))
		}
		if r != RatingUnknown {
			t.ratings[id] = r
		}
	}
	for k, n := range s.Missions {
		if n > 0 {
			t.missions[missionKey(k)] = n
		}
	}
	for _, f := range s.Flags {
		if f = normalizeFlag(f); f != "" {
			t.flags[f] = struct{}{}
		}
	}
	t.profile = s.Profile
	for env, loc := range s.Homes.Teleport {
		t.homes.teleport[env] = loc
	}
	if s.Homes.Visitors != nil {
		l := *s.Homes.Visitors
		t.homes.visitors = &l
	}
	for _, env := range s.Homes.Generated {
		t.homes.generated[env] = true
	}
	for k, v := range s.Upgrades.Levels {
		if v > 1 {
			t.upgrades.levels[upgradeKey(k)] = v
		}
	}
	if s.Upgrades.Size > 0 {
		t.upgrades.size = s.Upgrades.Size
	}
	if s.Upgrades.Multipliers != (Multipliers{}) {
		t.upgrades.multipliers = s.Upgrades.Multipliers
	}
	return t, nil
}

func (t *Territory) restoreLimits(s LimitsState) error {
	for k, n := range s.Blocks {
		if err := t.limits.SetLimit(limits.KindBlock, k, n); err != nil {
			return err
		}
	}
	for k, n := range s.Entities {
		if err := t.limits.SetLimit(limits.KindEntity, k, n); err != nil {
			return err
		}
	}
	t.limits.SetTeamLimit(limits.FromConfig(s.Team))
	t.limits.SetWarpsLimit(limits.FromConfig(s.Warps))
	t.limits.SetCoopLimit(limits.FromConfig(s.Coops))
	return nil
}
