package activerole

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/pkg/jwt"
)

// CookieName holds the signed active-role selection.
const CookieName = "crm_active_role"

// CookiePersister stores snapshots in a signed, HttpOnly cookie on the fiber
// request/response pair. Tampered or expired cookies load as empty.
type CookiePersister struct {
	c      *fiber.Ctx
	signer *jwt.Signer
	secure bool
}

// NewCookiePersister binds a persister to one request.
func NewCookiePersister(c *fiber.Ctx, signer *jwt.Signer, secure bool) *CookiePersister {
	return &CookiePersister{c: c, signer: signer, secure: secure}
}

func (p *CookiePersister) Load() (Snapshot, error) {
	raw := p.c.Cookies(CookieName)
	if raw == "" {
		return Snapshot{}, nil
	}
	claims, err := p.signer.ParseActiveRole(raw)
	if err != nil {
		return Snapshot{}, nil
	}
	role, ok := model.ParseRole(claims.ActiveRole)
	if !ok {
		return Snapshot{UserID: claims.Subject}, nil
	}
	return Snapshot{UserID: claims.Subject, ActiveRole: role}, nil
}

func (p *CookiePersister) Save(s Snapshot) error {
	token, err := p.signer.IssueActiveRole(s.UserID, string(s.ActiveRole))
	if err != nil {
		return err
	}
	p.c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   p.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// Clear removes the cookie, used on logout.
func Clear(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
