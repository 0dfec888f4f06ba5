package privilege

import (
	"sort"
	"strings"

	"skyclaim.ai/internal/territory/identity"
)

// Privilege names a permitted action inside a territory.
type Privilege string

const (
	Build          Privilege = "BUILD"
	Break          Privilege = "BREAK"
	Interact       Privilege = "INTERACT"
	OpenContainers Privilege = "CHEST_ACCESS"
	PickupDrops    Privilege = "PICKUP_DROPS"
	AnimalDamage   Privilege = "ANIMAL_DAMAGE"
	MonsterDamage  Privilege = "MONSTER_DAMAGE"
	UseWarps       Privilege = "WARP"
	SetWarp        Privilege = "SET_WARP"
	DeleteWarp     Privilege = "DELETE_WARP"
	InviteMember   Privilege = "INVITE_MEMBER"
	KickMember     Privilege = "KICK_MEMBER"
	BanMember      Privilege = "BAN_MEMBER"
	CoopMember     Privilege = "COOP_MEMBER"
	Promote        Privilege = "PROMOTE_MEMBERS"
	Demote         Privilege = "DEMOTE_MEMBERS"
	SetPermission  Privilege = "SET_PERMISSION"
	SetSettings    Privilege = "SET_SETTINGS"
	DepositMoney   Privilege = "DEPOSIT_MONEY"
	WithdrawMoney  Privilege = "WITHDRAW_MONEY"
	Rankup         Privilege = "RANKUP"
	SetBiome       Privilege = "SET_BIOME"
	Disband        Privilege = "DISBAND"
	Transfer       Privilege = "TRANSFER"
)

// Normalize upper-cases and trims a privilege name read from config or input.
func Normalize(s string) Privilege {
	return Privilege(strings.ToUpper(strings.TrimSpace(s)))
}

// Policy maps each privilege to the minimum role that holds it by default.
// It is fixed once built; use NewPolicy to copy a table in.
type Policy struct {
	required map[Privilege]identity.Role
}

func NewPolicy(table map[Privilege]identity.Role) Policy {
	req := make(map[Privilege]identity.Role, len(table))
	for p, r := range table {
		p = Normalize(string(p))
		if p == "" {
			continue
		}
		req[p] = r
	}
	return Policy{required: req}
}

// Required returns the configured minimum role. Unknown privileges require
// the owner.
func (p Policy) Required(priv Privilege) (identity.Role, bool) {
	r, ok := p.required[Normalize(string(priv))]
	if !ok {
		return identity.RoleOwner, false
	}
	return r, true
}

// Empty reports whether the policy has no entries, as the zero Policy.
func (p Policy) Empty() bool { return len(p.required) == 0 }

func (p Policy) Known(priv Privilege) bool {
	_, ok := p.required[Normalize(string(priv))]
	return ok
}

// Privileges lists every configured privilege, sorted.
func (p Policy) Privileges() []Privilege {
	out := make([]Privilege, 0, len(p.required))
	for k := range p.required {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p Policy) Table() map[Privilege]identity.Role {
	out := make(map[Privilege]identity.Role, len(p.required))
	for k, v := range p.required {
		out[k] = v
	}
	return out
}

func DefaultPolicy() Policy {
	return NewPolicy(map[Privilege]identity.Role{
		Build:          identity.RoleMember,
		Break:          identity.RoleMember,
		Interact:       identity.RoleCoop,
		OpenContainers: identity.RoleMember,
		PickupDrops:    identity.RoleCoop,
		AnimalDamage:   identity.RoleMember,
		MonsterDamage:  identity.RoleGuest,
		UseWarps:       identity.RoleGuest,
		SetWarp:        identity.RoleModerator,
		DeleteWarp:     identity.RoleModerator,
		InviteMember:   identity.RoleModerator,
		KickMember:     identity.RoleModerator,
		BanMember:      identity.RoleModerator,
		CoopMember:     identity.RoleModerator,
		Promote:        identity.RoleCoOwner,
		Demote:         identity.RoleCoOwner,
		SetPermission:  identity.RoleCoOwner,
		SetSettings:    identity.RoleCoOwner,
		DepositMoney:   identity.RoleMember,
		WithdrawMoney:  identity.RoleCoOwner,
		Rankup:         identity.RoleCoOwner,
		SetBiome:       identity.RoleCoOwner,
		Disband:        identity.RoleOwner,
		Transfer:       identity.RoleOwner,
	})
}
