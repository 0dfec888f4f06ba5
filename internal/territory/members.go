package territory

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/identity"
)

func (t *Territory) Owner() (uuid.UUID, error) {
	return view(t, "owner", func() uuid.UUID { return t.members.Owner() })
}

func (t *Territory) IsOwner(id uuid.UUID) (bool, error) {
	return view(t, "is_owner", func() bool { return t.members.IsOwner(id) })
}

// IsMember is true for the owner and every ranked member.
func (t *Territory) IsMember(id uuid.UUID) (bool, error) {
	return view(t, "is_member", func() bool { return t.members.IsMember(id) })
}

func (t *Territory) IsBanned(id uuid.UUID) (bool, error) {
	return view(t, "is_banned", func() bool { return t.members.IsBanned(id) })
}

func (t *Territory) IsCoop(id uuid.UUID) (bool, error) {
	return view(t, "is_coop", func() bool { return t.members.IsCoop(id) })
}

func (t *Territory) IsInvited(id uuid.UUID) (bool, error) {
	return view(t, "is_invited", func() bool { return t.members.IsInvited(id) })
}

// RoleOf is the role privileges resolve against: the member role, COOP or GUEST.
func (t *Territory) RoleOf(id uuid.UUID) (identity.Role, error) {
	return view(t, "role_of", func() identity.Role { return t.members.EffectiveRole(id) })
}

func (t *Territory) Members(includeOwner bool) ([]identity.Record, error) {
	return view(t, "members", func() []identity.Record { return t.members.Members(includeOwner) })
}

func (t *Territory) TeamSize() (int, error) {
	return view(t, "team_size", func() int { return t.members.TeamSize() })
}

func (t *Territory) Invited() ([]uuid.UUID, error) {
	return view(t, "invited", func() []uuid.UUID { return t.members.Invited() })
}

func (t *Territory) Banned() ([]uuid.UUID, error) {
	return view(t, "banned", func() []uuid.UUID { return t.members.Banned() })
}

func (t *Territory) Coops() ([]uuid.UUID, error) {
	return view(t, "coops", func() []uuid.UUID { return t.members.Coops() })
}

func (t *Territory) Invite(id uuid.UUID) error {
	return t.mutate("invite", func() ([]Delta, error) {
		if err := t.members.Invite(id); err != nil {
			return nil, err
		}
		return t.deltas(DeltaMembers), nil
	})
}

func (t *Territory) RevokeInvite(id uuid.UUID) error {
	return t.mutate("revoke_invite", func() ([]Delta, error) {
		if !t.members.IsInvited(id) {
			return nil, nil
		}
		t.members.RevokeInvite(id)
		return t.deltas(DeltaMembers), nil
	})
}

// AcceptInvite turns a pending invite into membership at the MEMBER role.
func (t *Territory) AcceptInvite(id uuid.UUID) error {
	const op = "accept_invite"
	return t.mutate(op, func() ([]Delta, error) {
		if !t.members.IsInvited(id) {
			return nil, errs.InvalidState(op, "player %s has no pending invite", id)
		}
		if t.limits.TeamFull(t.members.TeamSize()) {
			return nil, errs.InvalidState(op, "team limit %s reached", t.limits.TeamLimit())
		}
		if err := t.members.AddMember(id, identity.RoleMember); err != nil {
			return nil, err
		}
		return t.deltas(DeltaMembers), nil
	})
}

// AddMember adds id directly at role, bypassing invites and the team limit.
func (t *Territory) AddMember(id uuid.UUID, role identity.Role) error {
	return t.mutate("add_member", func() ([]Delta, error) {
		if err := t.members.AddMember(id, role); err != nil {
			return nil, err
		}
		return t.deltas(DeltaMembers), nil
	})
}

func (t *Territory) SetRole(id uuid.UUID, role identity.Role) error {
	return t.mutate("set_role", func() ([]Delta, error) {
		if err := t.members.SetRole(id, role); err != nil {
			return nil, err
		}
		return t.deltas(DeltaMembers), nil
	})
}

// Kick removes a member along with their personal privilege overrides.
func (t *Territory) Kick(id uuid.UUID) error {
	return t.mutate("kick", func() ([]Delta, error) {
		if err := t.members.Kick(id); err != nil {
			return nil, err
		}
		t.privileges.ClearPlayer(id)
		return t.deltas(DeltaMembers, DeltaPrivileges), nil
	})
}

func (t *Territory) Ban(id uuid.UUID) error {
	return t.mutate("ban", func() ([]Delta, error) {
		if err := t.members.Ban(id); err != nil {
			return nil, err
		}
		return t.deltas(DeltaMembers), nil
	})
}

func (t *Territory) Unban(id uuid.UUID) error {
	return t.mutate("unban", func() ([]Delta, error) {
		if !t.members.IsBanned(id) {
			return nil, nil
		}
		t.members.Unban(id)
		return t.deltas(DeltaMembers), nil
	})
}

func (t *Territory) AddCoop(id uuid.UUID) error {
	const op = "add_coop"
	return t.mutate(op, func() ([]Delta, error) {
		if !t.members.IsCoop(id) && t.limits.CoopsFull(len(t.members.Coops())) {
			return nil, errs.InvalidState(op, "co-op limit %s reached", t.limits.CoopLimit())
		}
		if err := t.members.AddCoop(id); err != nil {
			return nil, err
		}
		return t.deltas(DeltaMembers), nil
	})
}

func (t *Territory) RemoveCoop(id uuid.UUID) error {
	return t.mutate("remove_coop", func() ([]Delta, error) {
		if !t.members.IsCoop(id) {
			return nil, nil
		}
		t.members.RemoveCoop(id)
		return t.deltas(DeltaMembers), nil
	})
}

// TransferOwnership hands the territory to an existing member. The former
// owner stays on as CO_OWNER. Exactly one owner is observable before and
// after the call.
func (t *Territory) TransferOwnership(newOwner uuid.UUID) error {
	return t.transfer(uuid.Nil, newOwner)
}

// TransferOwnershipFrom transfers only if expected is still the owner, so of
// two racing transfers from the same owner only one succeeds.
func (t *Territory) TransferOwnershipFrom(expected, newOwner uuid.UUID) error {
	if expected == uuid.Nil {
		return errs.Validation("transfer_ownership", "expected owner must not be nil")
	}
	return t.transfer(expected, newOwner)
}

func (t *Territory) transfer(expected, newOwner uuid.UUID) error {
	const op = "transfer_ownership"
	var former uuid.UUID
	err := t.mutate(op, func() ([]Delta, error) {
		former = t.members.Owner()
		if expected != uuid.Nil && former != expected {
			return nil, errs.InvalidState(op, "owner changed: expected %s, is %s", expected, former)
		}
		if err := t.members.TransferOwnership(newOwner); err != nil {
			return nil, err
		}
		return t.deltas(DeltaMembers), nil
	})
	if err == nil {
		t.log.Info("ownership transferred",
			zap.String("from", former.String()),
			zap.String("to", newOwner.String()))
	}
	return err
}

// SetPlayerInside records presence. Non-members entering for the first time
// are counted as unique visitors.
func (t *Territory) SetPlayerInside(id uuid.UUID, inside bool) error {
	return t.mutate("set_player_inside", func() ([]Delta, error) {
		before := t.members.UniqueVisitorCount()
		t.members.SetInside(id, inside)
		if t.members.UniqueVisitorCount() == before {
			return nil, nil
		}
		return t.deltas(DeltaMembers), nil
	})
}

func (t *Territory) PlayersInside() ([]uuid.UUID, error) {
	return view(t, "players_inside", func() []uuid.UUID { return t.members.Inside() })
}

// Visitors lists the non-members inside, co-op players included.
func (t *Territory) Visitors() ([]uuid.UUID, error) {
	return view(t, "visitors", func() []uuid.UUID { return t.members.Visitors() })
}

func (t *Territory) IsVisitor(id uuid.UUID, includeCoop bool) (bool, error) {
	return view(t, "is_visitor", func() bool { return t.members.IsVisitor(id, includeCoop) })
}

func (t *Territory) UniqueVisitors() (map[uuid.UUID]time.Time, error) {
	return view(t, "unique_visitors", func() map[uuid.UUID]time.Time { return t.members.UniqueVisitors() })
}
