package model

import (
	"strings"

	"go-brokerage-crm/pkg/validator"
)

func init() {
	validator.RoleChecker = func(s string) bool {
		_, ok := ParseRole(s)
		return ok
	}
}

// Role is an employee role. The set is closed: adding a role means touching
// Priority, Label and DefaultDashboard here and the prefix rules in authz.
type Role string

// Role codes as constants
const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleAdmin        Role = "ADMIN"
	RoleEquityDealer Role = "EQUITY_DEALER"
	RoleMFDealer     Role = "MF_DEALER"
	RoleBackOffice   Role = "BACK_OFFICE"
)

// LoginPath is where unauthenticated users and unknown roles are sent.
const LoginPath = "/login"

// AllRoles returns every role in descending priority order.
func AllRoles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleEquityDealer, RoleMFDealer, RoleBackOffice}
}

// ParseRole converts a stored or submitted role code. Unknown codes are rejected,
// never mapped to a default role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Priority() > 0
}

// Priority ranks roles for tie-breaking; higher means broader access.
// Unknown roles rank 0.
func (r Role) Priority() int {
	switch r {
	case RoleSuperAdmin:
		return 5
	case RoleAdmin:
		return 4
	case RoleEquityDealer, RoleMFDealer:
		return 3
	case RoleBackOffice:
		return 2
	default:
		return 0
	}
}

// Label is the human readable name used by the role picker.
func (r Role) Label() string {
	switch r {
	case RoleSuperAdmin:
		return "Super Administrator"
	case RoleAdmin:
		return "Administrator"
	case RoleEquityDealer:
		return "Equity Dealer"
	case RoleMFDealer:
		return "Mutual Fund Dealer"
	case RoleBackOffice:
		return "Back Office"
	default:
		return string(r)
	}
}

// IsAdmin reports whether r belongs to the administrative tier.
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// DefaultDashboard maps a role to its landing page.
func DefaultDashboard(r Role) string {
	switch r {
	case RoleSuperAdmin, RoleAdmin:
		return "/dashboard"
	case RoleEquityDealer:
		return "/equity/dashboard"
	case RoleMFDealer:
		return "/mf/dashboard"
	case RoleBackOffice:
		return "/backoffice/dashboard"
	default:
		return LoginPath
	}
}

// RoleInfo is the API representation of a role.
type RoleInfo struct {
	Code      Role   `json:"code"`
	Name      string `json:"name"`
	Priority  int    `json:"priority"`
	Dashboard string `json:"dashboard"`
}

// Info describes r for API responses.
func (r Role) Info() RoleInfo {
	return RoleInfo{
		Code:      r,
		Name:      r.Label(),
		Priority:  r.Priority(),
		Dashboard: DefaultDashboard(r),
	}
}
