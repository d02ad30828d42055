package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-brokerage-crm/internal/activerole"
	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/service"
	"go-brokerage-crm/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	now      time.Time
	sessions map[string]*service.Session
	renewed  int
	renewErr error
}

func (f *fakeSessions) Inspect(token string) (*service.Session, bool) {
	s, ok := f.sessions[token]
	return s, ok
}

func (f *fakeSessions) Renew(s *service.Session) (string, time.Time, error) {
	if f.renewErr != nil {
		return "", time.Time{}, f.renewErr
	}
	f.renewed++
	fresh := *s
	fresh.IssuedAt = f.now
	fresh.ExpiresAt = f.now.Add(30 * 24 * time.Hour)
	f.sessions["renewed"] = &fresh
	return "renewed", fresh.ExpiresAt, nil
}

type gateCounter map[string]int

func (g gateCounter) ObserveGate(area, outcome string) { g[area+"/"+outcome]++ }

type harness struct {
	app      *fiber.App
	signer   *jwt.Signer
	sessions *fakeSessions
	gates    gateCounter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	signer, err := jwt.NewSigner("middleware-test-secret", 30*24*time.Hour)
	require.NoError(t, err)
	signer = signer.WithClock(func() time.Time { return now })

	h := &harness{
		signer:   signer,
		sessions: &fakeSessions{now: now, sessions: map[string]*service.Session{}},
		gates:    gateCounter{},
	}
	auth := NewAuthenticator(h.sessions, signer, SessionOptions{RenewAfter: 24 * time.Hour})

	app := fiber.New()
	app.Use(auth.Resolve())
	app.Use(RouteGate(h.gates))
	app.Get("/api/notifications", RequireSession(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	app.Get("/api/employees", RequireRoles(model.RoleSuperAdmin, model.RoleAdmin), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	app.Get("/*", func(c *fiber.Ctx) error {
		return c.SendString(string(ActiveRoleFrom(c)))
	})
	h.app = app
	return h
}

func (h *harness) login(token string, primary model.Role, secondary *model.Role, issuedAt time.Time) model.Identity {
	id := model.Identity{ID: uuid.New(), Name: "Test", Email: "t@crm.test", PrimaryRole: primary, SecondaryRole: secondary}
	h.sessions.sessions[token] = &service.Session{Identity: id, IssuedAt: issuedAt, ExpiresAt: issuedAt.Add(30 * 24 * time.Hour)}
	return id
}

func get(t *testing.T, app *fiber.App, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func cookieNamed(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func role(r model.Role) *model.Role { return &r }

func TestRouteGate_AnonymousRedirectsToLogin(t *testing.T) {
	h := newHarness(t)

	resp := get(t, h.app, "/equity/clients")
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, 1, h.gates["equity/redirect"])

	resp = get(t, h.app, "/login")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRouteGate_APIReturnsEnvelopeInsteadOfRedirect(t *testing.T) {
	h := newHarness(t)

	resp := get(t, h.app, "/api/notifications")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"error":"Unauthorized"}`, body(t, resp))
}

func TestRouteGate_WrongAreaGoesToPrimaryDashboard(t *testing.T) {
	h := newHarness(t)
	h.login("eq", model.RoleEquityDealer, nil, h.sessions.now)

	resp := get(t, h.app, "/mf/clients", &http.Cookie{Name: SessionCookie, Value: "eq"})
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/equity/dashboard", resp.Header.Get("Location"))

	resp = get(t, h.app, "/equity/clients", &http.Cookie{Name: SessionCookie, Value: "eq"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "EQUITY_DEALER", body(t, resp))
}

func TestRouteGate_SecondaryRoleAdmitsArea(t *testing.T) {
	h := newHarness(t)
	h.login("dual", model.RoleEquityDealer, role(model.RoleMFDealer), h.sessions.now)

	resp := get(t, h.app, "/mf/dashboard", &http.Cookie{Name: SessionCookie, Value: "dual"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRouteGate_LoginWhileSignedIn(t *testing.T) {
	h := newHarness(t)
	h.login("adm", model.RoleBackOffice, role(model.RoleAdmin), h.sessions.now)

	resp := get(t, h.app, "/login", &http.Cookie{Name: SessionCookie, Value: "adm"})
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestRouteGate_RootFollowsActiveRole(t *testing.T) {
	h := newHarness(t)
	id := h.login("dual", model.RoleEquityDealer, role(model.RoleMFDealer), h.sessions.now)
	selection, err := h.signer.IssueActiveRole(id.ID.String(), string(model.RoleMFDealer))
	require.NoError(t, err)

	resp := get(t, h.app, "/",
		&http.Cookie{Name: SessionCookie, Value: "dual"},
		&http.Cookie{Name: activerole.CookieName, Value: selection})
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/mf/dashboard", resp.Header.Get("Location"))

	resp = get(t, h.app, "/")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRouteGate_BypassesInfrastructurePaths(t *testing.T) {
	h := newHarness(t)
	for _, p := range []string{"/healthz", "/assets/app.js", "/favicon.ico"} {
		resp := get(t, h.app, p)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, p)
	}
	assert.Empty(t, h.gates)
}

func TestRouteGate_NonCanonicalPathsAreGated(t *testing.T) {
	h := newHarness(t)
	h.login("eq", model.RoleEquityDealer, nil, h.sessions.now)

	for _, p := range []string{"/Dashboard", "//dashboard", "/MASTERS/employees", "/%64ashboard", "/wsx/../dashboard"} {
		resp := get(t, h.app, p, &http.Cookie{Name: SessionCookie, Value: "eq"})
		assert.Equal(t, fiber.StatusFound, resp.StatusCode, p)
		assert.Equal(t, "/equity/dashboard", resp.Header.Get("Location"), p)
	}
}

func TestRouteGate_BypassMatchesWholeSegments(t *testing.T) {
	h := newHarness(t)
	for _, p := range []string{"/wsx/page", "/metricsX", "/healthzfoo", "/assetsy"} {
		resp := get(t, h.app, p)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode, p)
		assert.Equal(t, "/login", resp.Header.Get("Location"), p)
	}
}

func TestResolve_StaleActiveRoleResetsToPrimary(t *testing.T) {
	h := newHarness(t)
	id := h.login("eq", model.RoleEquityDealer, nil, h.sessions.now)
	selection, err := h.signer.IssueActiveRole(id.ID.String(), string(model.RoleAdmin))
	require.NoError(t, err)

	resp := get(t, h.app, "/settings",
		&http.Cookie{Name: SessionCookie, Value: "eq"},
		&http.Cookie{Name: activerole.CookieName, Value: selection})
	assert.Equal(t, "EQUITY_DEALER", body(t, resp))
	assert.NotNil(t, cookieNamed(resp, activerole.CookieName))
}

func TestResolve_SelectionOfAnotherUserIsDiscarded(t *testing.T) {
	h := newHarness(t)
	h.login("dual", model.RoleEquityDealer, role(model.RoleMFDealer), h.sessions.now)
	selection, err := h.signer.IssueActiveRole(uuid.NewString(), string(model.RoleMFDealer))
	require.NoError(t, err)

	resp := get(t, h.app, "/settings",
		&http.Cookie{Name: SessionCookie, Value: "dual"},
		&http.Cookie{Name: activerole.CookieName, Value: selection})
	assert.Equal(t, "EQUITY_DEALER", body(t, resp))
}

func TestResolve_SlidingRenewal(t *testing.T) {
	h := newHarness(t)
	h.login("old", model.RoleAdmin, nil, h.sessions.now.Add(-48*time.Hour))

	resp := get(t, h.app, "/dashboard", &http.Cookie{Name: SessionCookie, Value: "old"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, h.sessions.renewed)
	c := cookieNamed(resp, SessionCookie)
	require.NotNil(t, c)
	assert.Equal(t, "renewed", c.Value)

	h.login("fresh", model.RoleAdmin, nil, h.sessions.now.Add(-time.Hour))
	get(t, h.app, "/dashboard", &http.Cookie{Name: SessionCookie, Value: "fresh"})
	assert.Equal(t, 1, h.sessions.renewed)
}

func TestResolve_RefusedRenewalSignsOut(t *testing.T) {
	h := newHarness(t)
	h.sessions.renewErr = service.ErrInvalidCredentials
	h.login("old", model.RoleAdmin, nil, h.sessions.now.Add(-48*time.Hour))

	resp := get(t, h.app, "/dashboard", &http.Cookie{Name: SessionCookie, Value: "old"})
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	c := cookieNamed(resp, SessionCookie)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
}

func TestRequireRoles(t *testing.T) {
	h := newHarness(t)
	h.login("bo", model.RoleBackOffice, nil, h.sessions.now)
	h.login("adm", model.RoleBackOffice, role(model.RoleAdmin), h.sessions.now)

	resp := get(t, h.app, "/api/employees")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = get(t, h.app, "/api/employees", &http.Cookie{Name: SessionCookie, Value: "bo"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"error":"Forbidden"}`, body(t, resp))

	resp = get(t, h.app, "/api/employees", &http.Cookie{Name: SessionCookie, Value: "adm"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	h := newHarness(t)
	h.login("tok", model.RoleMFDealer, nil, h.sessions.now)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := h.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	lim := NewKeyedLimiter(60, 2, time.Minute)
	app := fiber.New()
	app.Post("/api/auth/login", RateLimit(lim), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusNoContent, fiber.StatusNoContent, fiber.StatusTooManyRequests}, codes)
}

func TestKeyedLimiter_SeparateKeysAndEviction(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	lim := NewKeyedLimiter(1, 1, time.Minute)
	lim.now = func() time.Time { return now }

	assert.True(t, lim.Allow("10.0.0.1"))
	assert.False(t, lim.Allow("10.0.0.1"))
	assert.True(t, lim.Allow("10.0.0.2"))

	now = now.Add(2 * time.Minute)
	lim.Allow("10.0.0.3")
	lim.mu.Lock()
	_, kept := lim.buckets["10.0.0.1"]
	lim.mu.Unlock()
	assert.False(t, kept)
}
