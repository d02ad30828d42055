package handler

import (
	"errors"
	"log"

	"go-brokerage-crm/internal/activerole"
	"go-brokerage-crm/internal/middleware"
	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/service"
	"go-brokerage-crm/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// LoginObserver counts login outcomes.
type LoginObserver interface {
	ObserveLogin(ok bool)
}

type AuthHandler struct {
	authService  service.AuthService
	signer       *jwt.Signer
	cookieSecure bool
	logins       LoginObserver
}

func NewAuthHandler(authService service.AuthService, signer *jwt.Signer, cookieSecure bool, logins LoginObserver) *AuthHandler {
	return &AuthHandler{authService: authService, signer: signer, cookieSecure: cookieSecure, logins: logins}
}

// LoginRequest represents the login request body. Role is the workspace picked
// on the login form and may be empty.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginResponse struct {
	*service.LoginResult
	Token string `json:"token"`
}

// Login handles employee authentication
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if req.Email == "" || req.Password == "" {
		return fail(c, fiber.StatusBadRequest, "Email and password are required")
	}

	var requested model.Role
	if req.Role != "" {
		r, ok := model.ParseRole(req.Role)
		if !ok {
			return fail(c, fiber.StatusBadRequest, "Unknown role")
		}
		requested = r
	}

	result, err := h.authService.Login(req.Email, req.Password, requested)
	if h.logins != nil {
		h.logins.ObserveLogin(err == nil)
	}
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
		}
		return fromError(c, err)
	}

	middleware.SetSession(c, result.Token, result.ExpiresAt, h.cookieSecure)

	// The choice is written before the store has read the cookie, so it
	// survives the rehydration that follows.
	store := activerole.NewStore(activerole.NewCookiePersister(c, h.signer, h.cookieSecure))
	if err := store.SetRoleForNewLogin(result.Identity.ID.String(), result.ActiveRole); err != nil {
		log.Printf("active role save user=%s: %v", result.Identity.ID, err)
	}
	if err := store.Rehydrate(); err != nil {
		log.Printf("active role rehydrate user=%s: %v", result.Identity.ID, err)
	}

	return ok(c, loginResponse{LoginResult: result, Token: result.Token})
}

// Logout clears the session cookies
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if id := middleware.IdentityFrom(c); id != nil {
		log.Printf("auth logout user=%s", id.ID)
	}
	middleware.ClearSession(c, h.cookieSecure)
	return ok(c, fiber.Map{"message": "Logged out"})
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword mails a one-time code. The answer is the same whether or
// not the account exists.
// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if req.Email == "" {
		return fail(c, fiber.StatusBadRequest, "Email is required")
	}
	if err := h.authService.RequestPasswordReset(req.Email); err != nil {
		return fromError(c, err)
	}
	return ok(c, fiber.Map{"message": "If the account exists, a code has been sent to its email"})
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ResetPassword sets a new password using an emailed code
// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		return fail(c, fiber.StatusBadRequest, "Email, code, and new_password are required")
	}
	if err := h.authService.ResetPassword(req.Email, req.Code, req.NewPassword); err != nil {
		return fromError(c, err)
	}
	return ok(c, fiber.Map{"message": "Password updated successfully"})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles password change for the signed-in employee
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fail(c, fiber.StatusBadRequest, "current_password and new_password are required")
	}
	if err := h.authService.ChangePassword(me.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return fromError(c, err)
	}
	log.Printf("auth password changed user=%s", me.ID)
	return ok(c, fiber.Map{"message": "Password updated successfully"})
}
