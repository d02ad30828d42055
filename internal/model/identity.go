package model

import "github.com/google/uuid"

// Identity is the authenticated principal carried by a session.
type Identity struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PrimaryRole   Role      `json:"role"`
	SecondaryRole *Role     `json:"secondary_role,omitempty"`
	Department    string    `json:"department,omitempty"`
	Designation   string    `json:"designation,omitempty"`
}

// EffectiveRole picks the single acting role of a dual-role identity: the
// secondary role only when it strictly outranks the primary one. Ties keep
// the primary role.
func EffectiveRole(id Identity) Role {
	if id.SecondaryRole != nil && id.SecondaryRole.Priority() > id.PrimaryRole.Priority() {
		return *id.SecondaryRole
	}
	return id.PrimaryRole
}

// Roles lists the held roles, primary first, without duplicates.
func (id Identity) Roles() []Role {
	roles := []Role{id.PrimaryRole}
	if id.SecondaryRole != nil && *id.SecondaryRole != id.PrimaryRole {
		roles = append(roles, *id.SecondaryRole)
	}
	return roles
}

// Holds reports whether either of the identity's roles equals r.
func (id Identity) Holds(r Role) bool {
	if id.PrimaryRole == r {
		return true
	}
	return id.SecondaryRole != nil && *id.SecondaryRole == r
}

// HoldsAny reports whether the primary or secondary role is in roles.
func (id Identity) HoldsAny(roles ...Role) bool {
	for _, r := range roles {
		if id.Holds(r) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether either held role is administrative.
func (id Identity) IsAdmin() bool {
	return id.HoldsAny(RoleSuperAdmin, RoleAdmin)
}
