package middleware

import (
	"log"
	"strings"

	"go-brokerage-crm/internal/authz"
	"go-brokerage-crm/internal/model"

	"github.com/gofiber/fiber/v2"
)

// GateObserver receives one observation per gate decision.
type GateObserver interface {
	ObserveGate(area, outcome string)
}

// gateBypass lists paths served without running the gate: static assets and
// infrastructure endpoints. An entry matches itself and anything below it.
var gateBypass = []string{"/assets", "/favicon.ico", "/healthz", "/metrics", "/ws"}

// bypassGate expects a canonical path.
func bypassGate(path string) bool {
	for _, p := range gateBypass {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// RouteGate applies the page-level access rules ahead of the web UI. It must
// run after Authenticator.Resolve.
func RouteGate(obs GateObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := authz.Canonical(c.Path())
		if bypassGate(path) {
			return c.Next()
		}

		id := IdentityFrom(c)
		if path == "/" {
			if id == nil {
				return c.Redirect(model.LoginPath, fiber.StatusFound)
			}
			return c.Redirect(model.DefaultDashboard(ActiveRoleFrom(c)), fiber.StatusFound)
		}

		d := authz.Decide(path, id)
		if obs != nil && !authz.IsPublic(path) {
			obs.ObserveGate(authz.AreaOf(path).String(), d.Outcome.String())
		}
		if d.Outcome == authz.Redirect {
			if id != nil && path != model.LoginPath {
				log.Printf("gate denied user=%s role=%s path=%s redirect=%s", id.ID, id.PrimaryRole, path, d.Location)
			}
			return c.Redirect(d.Location, fiber.StatusFound)
		}
		return c.Next()
	}
}
