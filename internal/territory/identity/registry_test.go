package identity

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyclaim.ai/internal/errs"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newRegistry(t *testing.T) (*Registry, uuid.UUID) {
	t.Helper()
	owner := uuid.New()
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r, err := NewRegistry(owner, c.now)
	require.NoError(t, err)
	return r, owner
}

func TestInviteIsIdempotentAndSkipsMembers(t *testing.T) {
	r, owner := newRegistry(t)
	b := uuid.New()

	require.NoError(t, r.Invite(b))
	require.NoError(t, r.Invite(b))
	assert.True(t, r.IsInvited(b))
	assert.Len(t, r.Invited(), 1)

	require.NoError(t, r.Invite(owner))
	assert.False(t, r.IsInvited(owner))

	banned := uuid.New()
	require.NoError(t, r.Ban(banned))
	require.NoError(t, r.Invite(banned))
	assert.False(t, r.IsInvited(banned))

	r.RevokeInvite(b)
	assert.False(t, r.IsInvited(b))

	assert.ErrorIs(t, r.Invite(uuid.Nil), errs.ErrValidation)
}

func TestAddMemberClearsOtherSets(t *testing.T) {
	r, owner := newRegistry(t)
	b := uuid.New()
	require.NoError(t, r.Invite(b))
	require.NoError(t, r.AddMember(b, RoleMember))
	assert.True(t, r.IsMember(b))
	assert.False(t, r.IsInvited(b))

	c := uuid.New()
	require.NoError(t, r.AddCoop(c))
	require.NoError(t, r.AddMember(c, RoleModerator))
	assert.False(t, r.IsCoop(c))
	role, ok := r.RoleOf(c)
	assert.True(t, ok)
	assert.Equal(t, RoleModerator, role)

	assert.ErrorIs(t, r.AddMember(owner, RoleMember), errs.ErrInvalidState)
	assert.ErrorIs(t, r.AddMember(uuid.New(), RoleOwner), errs.ErrValidation)
	assert.ErrorIs(t, r.AddMember(uuid.New(), RoleGuest), errs.ErrValidation)
	assert.Equal(t, 3, r.TeamSize())
}

func TestKickAndBan(t *testing.T) {
	r, owner := newRegistry(t)
	b := uuid.New()

	assert.ErrorIs(t, r.Kick(b), errs.ErrNotAMember)
	assert.ErrorIs(t, r.Kick(owner), errs.ErrInvalidState)

	require.NoError(t, r.AddMember(b, RoleMember))
	require.NoError(t, r.Ban(b))
	assert.False(t, r.IsMember(b))
	assert.True(t, r.IsBanned(b))

	assert.ErrorIs(t, r.AddCoop(b), errs.ErrInvalidState)
	assert.ErrorIs(t, r.Ban(owner), errs.ErrInvalidState)

	r.Unban(b)
	assert.False(t, r.IsBanned(b))
	require.NoError(t, r.AddCoop(b))
	assert.True(t, r.IsCoop(b))
	assert.Equal(t, RoleCoop, r.EffectiveRole(b))

	require.NoError(t, r.Ban(b))
	assert.False(t, r.IsCoop(b), "ban clears co-op")
}

func TestCoopRejectsMembers(t *testing.T) {
	r, owner := newRegistry(t)
	assert.ErrorIs(t, r.AddCoop(owner), errs.ErrInvalidState)
	m := uuid.New()
	require.NoError(t, r.AddMember(m, RoleMember))
	assert.ErrorIs(t, r.AddCoop(m), errs.ErrInvalidState)
	r.RemoveCoop(m)
}

func TestTransferOwnership(t *testing.T) {
	r, owner := newRegistry(t)
	b := uuid.New()

	assert.ErrorIs(t, r.TransferOwnership(b), errs.ErrNotAMember)
	assert.ErrorIs(t, r.TransferOwnership(owner), errs.ErrInvalidState)

	require.NoError(t, r.AddMember(b, RoleMember))
	require.NoError(t, r.TransferOwnership(b))
	assert.Equal(t, b, r.Owner())
	role, ok := r.RoleOf(owner)
	require.True(t, ok)
	assert.Equal(t, HighestMemberRole, role)

	owners := 0
	for _, rec := range r.Members(true) {
		if rec.Role == RoleOwner {
			owners++
		}
	}
	assert.Equal(t, 1, owners)
	assert.Equal(t, 2, r.TeamSize())
}

func TestSetRole(t *testing.T) {
	r, owner := newRegistry(t)
	b := uuid.New()
	assert.ErrorIs(t, r.SetRole(b, RoleMember), errs.ErrNotAMember)
	assert.ErrorIs(t, r.SetRole(owner, RoleMember), errs.ErrInvalidState)
	require.NoError(t, r.AddMember(b, RoleMember))
	require.NoError(t, r.SetRole(b, RoleCoOwner))
	assert.Equal(t, RoleCoOwner, r.EffectiveRole(b))
	assert.ErrorIs(t, r.SetRole(b, RoleOwner), errs.ErrValidation)
}

func TestVisitors(t *testing.T) {
	r, owner := newRegistry(t)
	v := uuid.New()
	c := uuid.New()
	require.NoError(t, r.AddCoop(c))

	r.SetInside(owner, true)
	r.SetInside(v, true)
	r.SetInside(c, true)

	assert.True(t, r.IsVisitor(v, false))
	assert.False(t, r.IsVisitor(owner, true))
	assert.False(t, r.IsVisitor(c, false))
	assert.True(t, r.IsVisitor(c, true))
	assert.Len(t, r.Visitors(), 2)
	assert.Len(t, r.Inside(), 3)

	r.SetInside(v, false)
	assert.False(t, r.IsVisitor(v, true))
	uniq := r.UniqueVisitors()
	assert.Contains(t, uniq, v)
	assert.Contains(t, uniq, c)
	assert.NotContains(t, uniq, owner)
}

func TestMembersOrdering(t *testing.T) {
	r, owner := newRegistry(t)
	a, b := uuid.New(), uuid.New()
	require.NoError(t, r.AddMember(a, RoleMember))
	require.NoError(t, r.AddMember(b, RoleMember))
	all := r.Members(true)
	require.Len(t, all, 3)
	assert.Equal(t, owner, all[0].ID)
	assert.Equal(t, a, all[1].ID)
	assert.Equal(t, b, all[2].ID)
	assert.Len(t, r.Members(false), 2)
}

func TestStateRoundTripKeepsInvariants(t *testing.T) {
	r, owner := newRegistry(t)
	m, banned, coop := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, r.AddMember(m, RoleModerator))
	require.NoError(t, r.Ban(banned))
	require.NoError(t, r.AddCoop(coop))

	back, err := RestoreRegistry(r.State(), nil)
	require.NoError(t, err)
	assert.Equal(t, owner, back.Owner())
	assert.Equal(t, RoleModerator, back.EffectiveRole(m))
	assert.True(t, back.IsBanned(banned))
	assert.True(t, back.IsCoop(coop))

	bad := r.State()
	bad.Banned[m] = time.Now()
	_, err = RestoreRegistry(bad, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestParseRole(t *testing.T) {
	for _, r := range Roles() {
		got, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	got, err := ParseRole("co-owner")
	require.NoError(t, err)
	assert.Equal(t, RoleCoOwner, got)
	got, err = ParseRole("visitor")
	require.NoError(t, err)
	assert.Equal(t, RoleGuest, got)
	_, err = ParseRole("emperor")
	assert.Error(t, err)
	assert.True(t, RoleOwner.AtLeast(RoleCoOwner))
	assert.False(t, RoleGuest.AtLeast(RoleCoop))
}
