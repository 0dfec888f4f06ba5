package privilege

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/identity"
)

func setup(t *testing.T) (*identity.Registry, *Resolver, uuid.UUID) {
	t.Helper()
	owner := uuid.New()
	reg, err := identity.NewRegistry(owner, time.Now)
	require.NoError(t, err)
	return reg, NewResolver(DefaultPolicy(), reg), owner
}

func TestRoleDefaults(t *testing.T) {
	reg, res, owner := setup(t)
	member := uuid.New()
	require.NoError(t, reg.AddMember(member, identity.RoleMember))
	stranger := uuid.New()

	assert.True(t, res.HasPrivilege(owner, Disband))
	assert.True(t, res.HasPrivilege(member, Build))
	assert.False(t, res.HasPrivilege(member, Disband))
	assert.False(t, res.HasPrivilege(stranger, Build))
	assert.True(t, res.HasPrivilege(stranger, UseWarps))

	coop := uuid.New()
	require.NoError(t, reg.AddCoop(coop))
	assert.True(t, res.HasPrivilege(coop, Interact))
	assert.False(t, res.HasPrivilege(coop, Build))
}

func TestPlayerOverrideBeatsRoleOverride(t *testing.T) {
	reg, res, _ := setup(t)
	b := uuid.New()
	require.NoError(t, reg.AddMember(b, identity.RoleMember))

	require.NoError(t, res.SetOverride(RoleSubject(identity.RoleMember), Build, true))
	require.NoError(t, res.SetOverride(PlayerSubject(b), Build, false))
	assert.False(t, res.HasPrivilege(b, Build))

	require.NoError(t, res.ClearOverride(PlayerSubject(b), Build))
	assert.True(t, res.HasPrivilege(b, Build))
	assert.Empty(t, res.Overrides(PlayerSubject(b)))
}

func TestRoleOverrideDeniesAndRequiredRoleIsUnaffected(t *testing.T) {
	reg, res, _ := setup(t)
	b := uuid.New()
	require.NoError(t, reg.AddMember(b, identity.RoleMember))

	require.NoError(t, res.SetOverride(RoleSubject(identity.RoleMember), "build", false))
	assert.False(t, res.HasPrivilege(b, Build))
	assert.Equal(t, identity.RoleMember, res.RequiredRole(Build))

	require.NoError(t, res.SetOverride(PlayerSubject(b), Build, true))
	assert.True(t, res.HasPrivilege(b, Build))
	assert.Equal(t, identity.RoleMember, res.RequiredRole(Build))
}

func TestBanOverridesEverything(t *testing.T) {
	reg, res, _ := setup(t)
	b := uuid.New()
	require.NoError(t, reg.AddMember(b, identity.RoleCoOwner))
	require.NoError(t, res.SetOverride(PlayerSubject(b), Build, true))
	require.NoError(t, res.SetOverride(PlayerSubject(b), UseWarps, true))

	require.NoError(t, reg.Ban(b))
	for _, p := range res.Policy().Privileges() {
		assert.False(t, res.HasPrivilege(b, p), p)
	}
	assert.False(t, res.HasPrivilege(b, "CUSTOM"))
}

func TestUnknownPrivilegeRequiresOwner(t *testing.T) {
	reg, res, owner := setup(t)
	b := uuid.New()
	require.NoError(t, reg.AddMember(b, identity.RoleCoOwner))
	assert.Equal(t, identity.RoleOwner, res.RequiredRole("FLY"))
	assert.True(t, res.HasPrivilege(owner, "FLY"))
	assert.False(t, res.HasPrivilege(b, "FLY"))
	assert.False(t, res.Policy().Known("FLY"))
}

func TestOverrideValidation(t *testing.T) {
	_, res, _ := setup(t)
	assert.ErrorIs(t, res.SetOverride(RoleSubject(identity.Role(42)), Build, true), errs.ErrValidation)
	assert.ErrorIs(t, res.SetOverride(RoleSubject(identity.RoleMember), " ", true), errs.ErrValidation)
	assert.ErrorIs(t, res.ClearOverride(RoleSubject(identity.Role(-1)), Build), errs.ErrValidation)
}

func TestAllAndRestore(t *testing.T) {
	reg, res, _ := setup(t)
	b := uuid.New()
	require.NoError(t, reg.AddMember(b, identity.RoleMember))
	require.NoError(t, res.SetOverride(PlayerSubject(b), Break, false))
	require.NoError(t, res.SetOverride(RoleSubject(identity.RoleGuest), Interact, true))

	all := res.All()
	require.Len(t, all, 2)
	assert.False(t, all[0].Subject.IsPlayer())
	assert.True(t, all[1].Subject.IsPlayer())

	other := NewResolver(DefaultPolicy(), reg)
	require.NoError(t, other.Restore(all))
	assert.False(t, other.HasPrivilege(b, Break))
	assert.True(t, other.HasPrivilege(uuid.New(), Interact))
}
