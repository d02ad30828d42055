package authz

import (
	"errors"

	"go-brokerage-crm/internal/model"
)

var (
	ErrUnauthenticated = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
)

// Require checks an endpoint's role requirement. Either held role satisfies
// it; an empty role list only demands authentication.
func Require(id *model.Identity, roles ...model.Role) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if len(roles) == 0 || id.HoldsAny(roles...) {
		return nil
	}
	return ErrForbidden
}

// Role sets shared by several endpoints.
var (
	Admins     = []model.Role{model.RoleSuperAdmin, model.RoleAdmin}
	SuperAdmin = []model.Role{model.RoleSuperAdmin}
	Dealers    = []model.Role{model.RoleEquityDealer, model.RoleMFDealer}
	ClientDesk = []model.Role{model.RoleSuperAdmin, model.RoleAdmin, model.RoleEquityDealer, model.RoleMFDealer, model.RoleBackOffice}
	Documents  = []model.Role{model.RoleSuperAdmin, model.RoleAdmin, model.RoleBackOffice}
)

// CanManageEmployee reports whether actor may create or edit an employee
// holding the given roles. Only a super admin can touch administrative accounts.
func CanManageEmployee(actor model.Identity, target ...model.Role) bool {
	if actor.Holds(model.RoleSuperAdmin) {
		return true
	}
	if !actor.Holds(model.RoleAdmin) {
		return false
	}
	for _, r := range target {
		if r.IsAdmin() {
			return false
		}
	}
	return true
}
