// Package authz holds the access rules of the CRM: the page-level route gate
// and the role checks every API endpoint repeats before touching storage.
package authz

import (
	"net/url"
	pathpkg "path"
	"strings"

	"go-brokerage-crm/internal/model"
)

// Outcome is what the gate does with a request.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
)

func (o Outcome) String() string {
	if o == Redirect {
		return "redirect"
	}
	return "allow"
}

// Decision is the result of evaluating one request.
type Decision struct {
	Outcome  Outcome
	Location string // set when Outcome is Redirect
}

func allow() Decision { return Decision{Outcome: Allow} }

func redirect(to string) Decision { return Decision{Outcome: Redirect, Location: to} }

// Area is a protected section of the UI identified by its path prefix.
type Area int

const (
	AreaOpen Area = iota
	AreaEquity
	AreaMF
	AreaBackOffice
	AreaAdmin
)

func (a Area) String() string {
	switch a {
	case AreaEquity:
		return "equity"
	case AreaMF:
		return "mf"
	case AreaBackOffice:
		return "backoffice"
	case AreaAdmin:
		return "admin"
	default:
		return "open"
	}
}

var adminPrefixes = []string{"/dashboard", "/brokerage", "/masters"}

// AreaOf classifies a path by prefix. Matching is on raw string prefixes, so
// "/mfoo" falls in the MF area just like "/mf/clients".
func AreaOf(path string) Area {
	switch {
	case strings.HasPrefix(path, "/equity"):
		return AreaEquity
	case strings.HasPrefix(path, "/mf"):
		return AreaMF
	case strings.HasPrefix(path, "/backoffice"):
		return AreaBackOffice
	}
	for _, p := range adminPrefixes {
		if strings.HasPrefix(path, p) {
			return AreaAdmin
		}
	}
	return AreaOpen
}

// AllowedRoles returns the roles admitted to an area; nil means any
// authenticated identity.
func AllowedRoles(a Area) []model.Role {
	switch a {
	case AreaEquity:
		return []model.Role{model.RoleEquityDealer}
	case AreaMF:
		return []model.Role{model.RoleMFDealer}
	case AreaBackOffice:
		return []model.Role{model.RoleBackOffice}
	case AreaAdmin:
		return []model.Role{model.RoleSuperAdmin, model.RoleAdmin}
	default:
		return nil
	}
}

// Canonical normalizes a request path before it is classified: percent-decoded
// until stable, lower-cased and cleaned. The router is case-insensitive.
func Canonical(path string) string {
	for strings.Contains(path, "%") {
		dec, err := url.PathUnescape(path)
		if err != nil || dec == path {
			break
		}
		path = dec
	}
	path = strings.ToLower(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return pathpkg.Clean(path)
}

// IsPublic reports whether a path may be reached without a session: the login
// page and the whole API (API handlers authenticate on their own).
func IsPublic(path string) bool {
	return path == model.LoginPath || path == "/api" || strings.HasPrefix(path, "/api/")
}

// Decide runs the gate for one request. id is nil when the request carries no
// valid session. path is canonicalized first.
func Decide(path string, id *model.Identity) Decision {
	path = Canonical(path)
	if IsPublic(path) {
		if path == model.LoginPath && id != nil {
			return redirect(model.DefaultDashboard(model.EffectiveRole(*id)))
		}
		return allow()
	}

	if id == nil {
		return redirect(model.LoginPath)
	}

	allowed := AllowedRoles(AreaOf(path))
	if allowed == nil || id.HoldsAny(allowed...) {
		return allow()
	}
	return redirect(model.DefaultDashboard(id.PrimaryRole))
}
