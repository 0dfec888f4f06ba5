// Package identity tracks who belongs to a territory and in which capacity:
// the owner, ranked members, invitations, bans, co-op grants and the players
// currently inside. A Registry is not safe for concurrent use; the owning
// territory serializes access.
package identity

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"skyclaim.ai/internal/errs"
)

// Identity is an opaque player id with its last known display name.
type Identity struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name,omitempty"`
}

// Record is one membership entry.
type Record struct {
	ID       uuid.UUID `json:"id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type Registry struct {
	now func() time.Time

	owner      uuid.UUID
	ownerSince time.Time

	members map[uuid.UUID]Record
	invited map[uuid.UUID]time.Time
	banned  map[uuid.UUID]time.Time
	coops   map[uuid.UUID]time.Time

	inside   map[uuid.UUID]time.Time
	visitors map[uuid.UUID]time.Time // first visit of each non-member
}

func NewRegistry(owner uuid.UUID, now func() time.Time) (*Registry, error) {
	if owner == uuid.Nil {
		return nil, errs.Validation("new_registry", "owner id must not be nil")
	}
	if now == nil {
		now = time.Now
	}
	r := &Registry{
		now:        now,
		owner:      owner,
		ownerSince: now(),
	}
	r.init()
	return r, nil
}

func (r *Registry) init() {
	r.members = map[uuid.UUID]Record{}
	r.invited = map[uuid.UUID]time.Time{}
	r.banned = map[uuid.UUID]time.Time{}
	r.coops = map[uuid.UUID]time.Time{}
	r.inside = map[uuid.UUID]time.Time{}
	r.visitors = map[uuid.UUID]time.Time{}
}

func (r *Registry) Owner() uuid.UUID { return r.owner }

func (r *Registry) IsOwner(id uuid.UUID) bool { return id != uuid.Nil && id == r.owner }

// IsMember includes the owner.
func (r *Registry) IsMember(id uuid.UUID) bool {
	if r.IsOwner(id) {
		return true
	}
	_, ok := r.members[id]
	return ok
}

func (r *Registry) IsBanned(id uuid.UUID) bool {
	_, ok := r.banned[id]
	return ok
}

func (r *Registry) IsCoop(id uuid.UUID) bool {
	_, ok := r.coops[id]
	return ok
}

func (r *Registry) IsInvited(id uuid.UUID) bool {
	_, ok := r.invited[id]
	return ok
}

// RoleOf returns the membership role of id. Non-members report false.
func (r *Registry) RoleOf(id uuid.UUID) (Role, bool) {
	if r.IsOwner(id) {
		return RoleOwner, true
	}
	rec, ok := r.members[id]
	if !ok {
		return RoleGuest, false
	}
	return rec.Role, true
}

// EffectiveRole is the role privileges resolve against: the membership role,
// COOP for co-op grants, GUEST for everyone else.
func (r *Registry) EffectiveRole(id uuid.UUID) Role {
	if role, ok := r.RoleOf(id); ok {
		return role
	}
	if r.IsCoop(id) {
		return RoleCoop
	}
	return RoleGuest
}

// TeamSize counts the owner and every member.
func (r *Registry) TeamSize() int { return len(r.members) + 1 }

// Invite adds id to the invited set unless it is already a member or banned.
func (r *Registry) Invite(id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.Validation("invite", "player id must not be nil")
	}
	if r.IsMember(id) || r.IsBanned(id) || r.IsInvited(id) {
		return nil
	}
	r.invited[id] = r.now()
	return nil
}

func (r *Registry) RevokeInvite(id uuid.UUID) { delete(r.invited, id) }

// AddMember moves id into membership with the given role, clearing any
// invite, ban or co-op entry.
func (r *Registry) AddMember(id uuid.UUID, role Role) error {
	const op = "add_member"
	if id == uuid.Nil {
		return errs.Validation(op, "player id must not be nil")
	}
	if r.IsOwner(id) {
		return errs.InvalidState(op, "player %s is the owner", id)
	}
	if !role.MemberRole() {
		return errs.Validation(op, "role %s cannot be held by a member", role)
	}
	delete(r.invited, id)
	delete(r.banned, id)
	delete(r.coops, id)
	delete(r.visitors, id)
	rec, ok := r.members[id]
	if !ok {
		rec = Record{ID: id, JoinedAt: r.now()}
	}
	rec.Role = role
	r.members[id] = rec
	return nil
}

// SetRole changes the role of an existing member.
func (r *Registry) SetRole(id uuid.UUID, role Role) error {
	const op = "set_role"
	if r.IsOwner(id) {
		return errs.InvalidState(op, "owner role changes only through ownership transfer")
	}
	rec, ok := r.members[id]
	if !ok {
		return errs.NotAMember(op, "player %s is not a member", id)
	}
	if !role.MemberRole() {
		return errs.Validation(op, "role %s cannot be held by a member", role)
	}
	rec.Role = role
	r.members[id] = rec
	return nil
}

func (r *Registry) Kick(id uuid.UUID) error {
	const op = "kick"
	if r.IsOwner(id) {
		return errs.InvalidState(op, "the owner cannot be kicked")
	}
	if _, ok := r.members[id]; !ok {
		return errs.NotAMember(op, "player %s is not a member", id)
	}
	delete(r.members, id)
	return nil
}

// Ban removes any membership, invite or co-op grant before banning id.
func (r *Registry) Ban(id uuid.UUID) error {
	const op = "ban"
	if id == uuid.Nil {
		return errs.Validation(op, "player id must not be nil")
	}
	if r.IsOwner(id) {
		return errs.InvalidState(op, "the owner cannot be banned")
	}
	delete(r.members, id)
	delete(r.invited, id)
	delete(r.coops, id)
	if _, ok := r.banned[id]; !ok {
		r.banned[id] = r.now()
	}
	return nil
}

func (r *Registry) Unban(id uuid.UUID) { delete(r.banned, id) }

func (r *Registry) AddCoop(id uuid.UUID) error {
	const op = "add_coop"
	if id == uuid.Nil {
		return errs.Validation(op, "player id must not be nil")
	}
	if r.IsBanned(id) {
		return errs.InvalidState(op, "player %s is banned", id)
	}
	if r.IsMember(id) {
		return errs.InvalidState(op, "player %s is already a member", id)
	}
	if _, ok := r.coops[id]; !ok {
		r.coops[id] = r.now()
	}
	return nil
}

func (r *Registry) RemoveCoop(id uuid.UUID) { delete(r.coops, id) }

// TransferOwnership hands the territory to an existing member. The former
// owner stays on as a member at HighestMemberRole.
func (r *Registry) TransferOwnership(newOwner uuid.UUID) error {
	const op = "transfer_ownership"
	if r.IsOwner(newOwner) {
		return errs.InvalidState(op, "player %s already owns the territory", newOwner)
	}
	rec, ok := r.members[newOwner]
	if !ok {
		return errs.NotAMember(op, "player %s is not a member", newOwner)
	}
	now := r.now()
	former := r.owner
	delete(r.members, newOwner)
	r.members[former] = Record{ID: former, Role: HighestMemberRole, JoinedAt: r.ownerSince}
	r.owner = rec.ID
	r.ownerSince = now
	return nil
}

// SetInside records whether id is physically inside the territory. Non-members
// entering are remembered as unique visitors.
func (r *Registry) SetInside(id uuid.UUID, inside bool) {
	if id == uuid.Nil {
		return
	}
	if !inside {
		delete(r.inside, id)
		return
	}
	now := r.now()
	r.inside[id] = now
	if !r.IsMember(id) {
		if _, seen := r.visitors[id]; !seen {
			r.visitors[id] = now
		}
	}
}

func (r *Registry) IsInside(id uuid.UUID) bool {
	_, ok := r.inside[id]
	return ok
}

// IsVisitor reports a non-member currently inside. Co-op players count as
// visitors only when includeCoop is set.
func (r *Registry) IsVisitor(id uuid.UUID, includeCoop bool) bool {
	if !r.IsInside(id) || r.IsMember(id) {
		return false
	}
	return includeCoop || !r.IsCoop(id)
}

// Members lists member records ordered by join time. The owner is listed
// first when includeOwner is set.
func (r *Registry) Members(includeOwner bool) []Record {
	out := make([]Record, 0, len(r.members)+1)
	if includeOwner {
		out = append(out, Record{ID: r.owner, Role: RoleOwner, JoinedAt: r.ownerSince})
	}
	recs := make([]Record, 0, len(r.members))
	for _, rec := range r.members {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].JoinedAt.Equal(recs[j].JoinedAt) {
			return recs[i].JoinedAt.Before(recs[j].JoinedAt)
		}
		return recs[i].ID.String() < recs[j].ID.String()
	})
	return append(out, recs...)
}

func (r *Registry) Invited() []uuid.UUID { return sortedIDs(r.invited) }
func (r *Registry) Banned() []uuid.UUID  { return sortedIDs(r.banned) }
func (r *Registry) Coops() []uuid.UUID   { return sortedIDs(r.coops) }
func (r *Registry) Inside() []uuid.UUID  { return sortedIDs(r.inside) }

// Visitors lists players inside who are not members (co-op players included).
func (r *Registry) Visitors() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(r.inside))
	for _, id := range sortedIDs(r.inside) {
		if r.IsVisitor(id, true) {
			out = append(out, id)
		}
	}
	return out
}

// UniqueVisitors returns every non-member that ever entered, with the time of
// the first visit.
func (r *Registry) UniqueVisitors() map[uuid.UUID]time.Time {
	out := make(map[uuid.UUID]time.Time, len(r.visitors))
	for id, t := range r.visitors {
		out[id] = t
	}
	return out
}

func (r *Registry) UniqueVisitorCount() int { return len(r.visitors) }

func sortedIDs(m map[uuid.UUID]time.Time) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
