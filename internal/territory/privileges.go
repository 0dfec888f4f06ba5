package territory

import (
	"github.com/google/uuid"

	"skyclaim.ai/internal/territory/identity"
	"skyclaim.ai/internal/territory/privilege"
)

// HasPrivilege resolves priv for id. Non-members resolve against COOP or
// GUEST, and a ban denies everything.
func (t *Territory) HasPrivilege(id uuid.UUID, priv privilege.Privilege) (bool, error) {
	return view(t, "has_privilege", func() bool { return t.privileges.HasPrivilege(id, priv) })
}

func (t *Territory) HasRolePrivilege(role identity.Role, priv privilege.Privilege) (bool, error) {
	return view(t, "has_role_privilege", func() bool { return t.privileges.HasRolePrivilege(role, priv) })
}

// RequiredRole is the policy minimum for priv; overrides do not change it.
func (t *Territory) RequiredRole(priv privilege.Privilege) (identity.Role, error) {
	return view(t, "required_role", func() identity.Role { return t.privileges.RequiredRole(priv) })
}

func (t *Territory) SetOverride(s privilege.Subject, priv privilege.Privilege, value bool) error {
	return t.mutate("set_override", func() ([]Delta, error) {
		if err := t.privileges.SetOverride(s, priv, value); err != nil {
			return nil, err
		}
		return t.deltas(DeltaPrivileges), nil
	})
}

// ClearOverride drops an override so resolution falls back to the next level.
func (t *Territory) ClearOverride(s privilege.Subject, priv privilege.Privilege) error {
	return t.mutate("clear_override", func() ([]Delta, error) {
		if err := t.privileges.ClearOverride(s, priv); err != nil {
			return nil, err
		}
		return t.deltas(DeltaPrivileges), nil
	})
}

func (t *Territory) ResetPlayerOverrides(id uuid.UUID) error {
	return t.mutate("reset_player_overrides", func() ([]Delta, error) {
		t.privileges.ClearPlayer(id)
		return t.deltas(DeltaPrivileges), nil
	})
}

func (t *Territory) Overrides(s privilege.Subject) (map[privilege.Privilege]bool, error) {
	return view(t, "overrides", func() map[privilege.Privilege]bool { return t.privileges.Overrides(s) })
}
