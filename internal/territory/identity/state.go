package identity

import (
	"time"

	"github.com/google/uuid"

	"skyclaim.ai/internal/errs"
)

// State is the serializable form of a Registry. Presence (players inside) is
// runtime-only and not part of it.
type State struct {
	Owner          uuid.UUID               `json:"owner"`
	OwnerSince     time.Time               `json:"owner_since"`
	Members        []Record                `json:"members"`
	Invited        map[uuid.UUID]time.Time `json:"invited,omitempty"`
	Banned         map[uuid.UUID]time.Time `json:"banned,omitempty"`
	Coops          map[uuid.UUID]time.Time `json:"coops,omitempty"`
	UniqueVisitors map[uuid.UUID]time.Time `json:"unique_visitors,omitempty"`
}

func (r *Registry) State() State {
	return State{
		Owner:          r.owner,
		OwnerSince:     r.ownerSince,
		Members:        r.Members(false),
		Invited:        copyTimes(r.invited),
		Banned:         copyTimes(r.banned),
		Coops:          copyTimes(r.coops),
		UniqueVisitors: copyTimes(r.visitors),
	}
}

// RestoreRegistry rebuilds a registry, rejecting states that break the
// single-owner and disjoint-set invariants.
func RestoreRegistry(s State, now func() time.Time) (*Registry, error) {
	const op = "restore_registry"
	r, err := NewRegistry(s.Owner, now)
	if err != nil {
		return nil, err
	}
	r.ownerSince = s.OwnerSince
	for _, rec := range s.Members {
		if rec.ID == s.Owner {
			return nil, errs.InvalidState(op, "owner %s also listed as member", rec.ID)
		}
		if !rec.Role.MemberRole() {
			return nil, errs.Validation(op, "member %s has role %s", rec.ID, rec.Role)
		}
		r.members[rec.ID] = rec
	}
	for id, t := range s.Banned {
		if r.IsMember(id) {
			return nil, errs.InvalidState(op, "player %s is both member and banned", id)
		}
		r.banned[id] = t
	}
	for id, t := range s.Coops {
		if r.IsMember(id) || r.IsBanned(id) {
			return nil, errs.InvalidState(op, "co-op player %s is also member or banned", id)
		}
		r.coops[id] = t
	}
	for id, t := range s.Invited {
		r.invited[id] = t
	}
	for id, t := range s.UniqueVisitors {
		r.visitors[id] = t
	}
	return r, nil
}

func copyTimes(m map[uuid.UUID]time.Time) map[uuid.UUID]time.Time {
	if len(m) == 0 {
		return nil
	}
	out := make(map[uuid.UUID]time.Time, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
