package identity

import (
	"fmt"
	"strings"
)

// Role is a ranked membership tier. Higher values outrank lower ones.
type Role int

const (
	// RoleGuest is the pseudo-role for visitors and unknown identities.
	RoleGuest Role = iota
	RoleCoop
	RoleMember
	RoleModerator
	RoleCoOwner
	RoleOwner
)

var roleNames = map[Role]string{
	RoleGuest:     "GUEST",
	RoleCoop:      "COOP",
	RoleMember:    "MEMBER",
	RoleModerator: "MODERATOR",
	RoleCoOwner:   "CO_OWNER",
	RoleOwner:     "OWNER",
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return fmt.Sprintf("ROLE(%d)", int(r))
}

func (r Role) Valid() bool { return r >= RoleGuest && r <= RoleOwner }

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool { return r >= other }

// MemberRole reports whether r can be held by a regular (non-owner) member record.
func (r Role) MemberRole() bool { return r >= RoleMember && r < RoleOwner }

// HighestMemberRole is the rank a former owner drops to on ownership transfer.
const HighestMemberRole = RoleCoOwner

func ParseRole(s string) (Role, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	if key == "COOWNER" {
		key = "CO_OWNER"
	}
	if key == "VISITOR" || key == "DEFAULT" {
		return RoleGuest, nil
	}
	for r, n := range roleNames {
		if n == key {
			return r, nil
		}
	}
	return RoleGuest, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Roles lists every role from lowest to highest rank.
func Roles() []Role {
	return []Role{RoleGuest, RoleCoop, RoleMember, RoleModerator, RoleCoOwner, RoleOwner}
}
