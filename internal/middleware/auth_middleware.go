package middleware

import (
	"log"
	"strings"
	"time"

	"go-brokerage-crm/internal/activerole"
	"go-brokerage-crm/internal/authz"
	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/service"
	"go-brokerage-crm/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "crm_session"

const (
	localIdentity    = "identity"
	localActiveRoles = "active_role_store"
)

// Sessions is the part of the auth service the middleware needs.
type Sessions interface {
	Inspect(token string) (*service.Session, bool)
	Renew(s *service.Session) (string, time.Time, error)
}

// SessionOptions configures cookie handling.
type SessionOptions struct {
	RenewAfter   time.Duration
	CookieSecure bool
}

type Authenticator struct {
	sessions Sessions
	signer   *jwt.Signer
	opts     SessionOptions
}

func NewAuthenticator(sessions Sessions, signer *jwt.Signer, opts SessionOptions) *Authenticator {
	return &Authenticator{sessions: sessions, signer: signer, opts: opts}
}

// tokenFrom reads the session cookie, falling back to "Authorization: Bearer <token>".
func tokenFrom(c *fiber.Ctx) string {
	if t := c.Cookies(SessionCookie); t != "" {
		return t
	}
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

// Resolve verifies the session, if any, and stores the identity and the
// hydrated active-role store in the request locals. It never rejects; the
// route gate and RequireSession decide what an anonymous request may do.
func (a *Authenticator) Resolve() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFrom(c)
		if token == "" {
			return c.Next()
		}

		sess, ok := a.sessions.Inspect(token)
		if !ok {
			return c.Next()
		}

		// Sliding renewal: an old enough token is swapped for a fresh one
		// built from the current employee record.
		if a.signer.Now().Sub(sess.IssuedAt) >= a.opts.RenewAfter {
			fresh, exp, err := a.sessions.Renew(sess)
			if err != nil {
				log.Printf("auth renewal refused user=%s: %v", sess.Identity.ID, err)
				ClearSession(c, a.opts.CookieSecure)
				return c.Next()
			}
			SetSession(c, fresh, exp, a.opts.CookieSecure)
			if renewed, ok := a.sessions.Inspect(fresh); ok {
				sess = renewed
			}
		}

		id := sess.Identity
		store := activerole.NewStore(activerole.NewCookiePersister(c, a.signer, a.opts.CookieSecure))
		if err := store.Rehydrate(); err != nil {
			log.Printf("active role rehydrate user=%s: %v", id.ID, err)
		}
		if _, err := store.InitForUser(id.ID.String(), id.PrimaryRole); err != nil {
			log.Printf("active role init user=%s: %v", id.ID, err)
		}
		// A selection for a role the employee no longer holds is stale.
		if !id.Holds(store.ActiveRole()) {
			if err := store.SetActiveRole(id.PrimaryRole); err != nil {
				log.Printf("active role reset user=%s: %v", id.ID, err)
			}
		}

		c.Locals(localIdentity, &id)
		c.Locals(localActiveRoles, store)
		return c.Next()
	}
}

// RequireSession rejects requests without a verified session.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if IdentityFrom(c) == nil {
			return deny(c, fiber.StatusUnauthorized, "Unauthorized")
		}
		return c.Next()
	}
}

// RequireRoles admits the request when either held role is one of roles.
func RequireRoles(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch authz.Require(IdentityFrom(c), roles...) {
		case nil:
			return c.Next()
		case authz.ErrUnauthenticated:
			return deny(c, fiber.StatusUnauthorized, "Unauthorized")
		default:
			return deny(c, fiber.StatusForbidden, "Forbidden")
		}
	}
}

func deny(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": msg})
}

// IdentityFrom returns the verified identity of the request, or nil.
func IdentityFrom(c *fiber.Ctx) *model.Identity {
	id, _ := c.Locals(localIdentity).(*model.Identity)
	return id
}

// ActiveRoles returns the request's hydrated active-role store, or nil when
// the request is anonymous.
func ActiveRoles(c *fiber.Ctx) *activerole.Store {
	s, _ := c.Locals(localActiveRoles).(*activerole.Store)
	return s
}

// ActiveRoleFrom returns the active role, defaulting to the primary role.
func ActiveRoleFrom(c *fiber.Ctx) model.Role {
	id := IdentityFrom(c)
	if id == nil {
		return ""
	}
	if s := ActiveRoles(c); s != nil && s.ActiveRole() != "" {
		return s.ActiveRole()
	}
	return id.PrimaryRole
}

// SetSession writes the session cookie.
func SetSession(c *fiber.Ctx, token string, expires time.Time, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSession removes the session and active-role cookies.
func ClearSession(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	activerole.Clear(c, secure)
}
