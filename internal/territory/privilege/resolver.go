// Package privilege decides whether an identity may perform a named action.
//
// Resolution order: a ban denies everything; otherwise a per-player override
// wins, then a per-role override for the player's effective role, then the
// policy's minimum role compared by rank. Non-members resolve as COOP (co-op
// grants) or GUEST.
package privilege

import (
	"sort"

	"github.com/google/uuid"

	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/identity"
)

// Membership is the slice of the identity registry the resolver reads.
type Membership interface {
	EffectiveRole(id uuid.UUID) identity.Role
	IsBanned(id uuid.UUID) bool
}

// Subject is either a role or a single player.
type Subject struct {
	Role   identity.Role
	Player uuid.UUID
}

func RoleSubject(r identity.Role) Subject { return Subject{Role: r} }
func PlayerSubject(id uuid.UUID) Subject  { return Subject{Player: id} }
func (s Subject) IsPlayer() bool          { return s.Player != uuid.Nil }

func (s Subject) String() string {
	if s.IsPlayer() {
		return "player:" + s.Player.String()
	}
	return "role:" + s.Role.String()
}

type Resolver struct {
	policy  Policy
	members Membership

	roles   map[identity.Role]map[Privilege]bool
	players map[uuid.UUID]map[Privilege]bool
}

func NewResolver(policy Policy, members Membership) *Resolver {
	return &Resolver{
		policy:  policy,
		members: members,
		roles:   map[identity.Role]map[Privilege]bool{},
		players: map[uuid.UUID]map[Privilege]bool{},
	}
}

func (r *Resolver) Policy() Policy { return r.policy }

// RequiredRole is policy metadata; overrides never change it.
func (r *Resolver) RequiredRole(priv Privilege) identity.Role {
	role, _ := r.policy.Required(priv)
	return role
}

func (r *Resolver) HasPrivilege(id uuid.UUID, priv Privilege) bool {
	priv = Normalize(string(priv))
	if r.members.IsBanned(id) {
		return false
	}
	if v, ok := r.players[id][priv]; ok {
		return v
	}
	return r.HasRolePrivilege(r.members.EffectiveRole(id), priv)
}

func (r *Resolver) HasRolePrivilege(role identity.Role, priv Privilege) bool {
	priv = Normalize(string(priv))
	if v, ok := r.roles[role][priv]; ok {
		return v
	}
	return role.AtLeast(r.RequiredRole(priv))
}

func validate(op string, s Subject, priv Privilege) error {
	if priv == "" {
		return errs.Validation(op, "privilege name must not be empty")
	}
	if !s.IsPlayer() && !s.Role.Valid() {
		return errs.Validation(op, "unknown role %d", int(s.Role))
	}
	return nil
}

// SetOverride records an explicit value for subject. Last write wins.
func (r *Resolver) SetOverride(s Subject, priv Privilege, value bool) error {
	priv = Normalize(string(priv))
	if err := validate("set_override", s, priv); err != nil {
		return err
	}
	if s.IsPlayer() {
		m := r.players[s.Player]
		if m == nil {
			m = map[Privilege]bool{}
			r.players[s.Player] = m
		}
		m[priv] = value
		return nil
	}
	m := r.roles[s.Role]
	if m == nil {
		m = map[Privilege]bool{}
		r.roles[s.Role] = m
	}
	m[priv] = value
	return nil
}

// ClearOverride drops an override so resolution falls back to the next level.
func (r *Resolver) ClearOverride(s Subject, priv Privilege) error {
	priv = Normalize(string(priv))
	if err := validate("clear_override", s, priv); err != nil {
		return err
	}
	if s.IsPlayer() {
		delete(r.players[s.Player], priv)
		if len(r.players[s.Player]) == 0 {
			delete(r.players, s.Player)
		}
		return nil
	}
	delete(r.roles[s.Role], priv)
	if len(r.roles[s.Role]) == 0 {
		delete(r.roles, s.Role)
	}
	return nil
}

// ClearPlayer drops every override held by one player.
func (r *Resolver) ClearPlayer(id uuid.UUID) { delete(r.players, id) }

// Overrides returns a copy of the explicit values stored for subject.
func (r *Resolver) Overrides(s Subject) map[Privilege]bool {
	var src map[Privilege]bool
	if s.IsPlayer() {
		src = r.players[s.Player]
	} else {
		src = r.roles[s.Role]
	}
	out := make(map[Privilege]bool, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Override is one stored (subject, privilege, value) triple.
type Override struct {
	Subject   Subject   `json:"-"`
	Role      string    `json:"role,omitempty"`
	Player    uuid.UUID `json:"player,omitempty"`
	Privilege Privilege `json:"privilege"`
	Value     bool      `json:"value"`
}

// All lists every stored override in a stable order: roles first, then players.
func (r *Resolver) All() []Override {
	var out []Override
	for role, m := range r.roles {
		for p, v := range m {
			out = append(out, Override{Subject: RoleSubject(role), Role: role.String(), Privilege: p, Value: v})
		}
	}
	for id, m := range r.players {
		for p, v := range m {
			out = append(out, Override{Subject: PlayerSubject(id), Player: id, Privilege: p, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Subject.IsPlayer() != b.Subject.IsPlayer() {
			return !a.Subject.IsPlayer()
		}
		if as, bs := a.Subject.String(), b.Subject.String(); as != bs {
			return as < bs
		}
		return a.Privilege < b.Privilege
	})
	return out
}

// Restore loads overrides exported by All.
func (r *Resolver) Restore(list []Override) error {
	for _, o := range list {
		s := PlayerSubject(o.Player)
		if o.Player == uuid.Nil {
			role, err := identity.ParseRole(o.Role)
			if err != nil {
				return errs.Validation("restore_overrides", "%v", err)
			}
			s = RoleSubject(role)
		}
		if err := r.SetOverride(s, o.Privilege, o.Value); err != nil {
			return err
		}
	}
	return nil
}
