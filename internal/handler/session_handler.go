package handler

import (
	"log"

	"go-brokerage-crm/internal/middleware"
	"go-brokerage-crm/internal/model"

	"github.com/gofiber/fiber/v2"
)

type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// SessionView describes the signed-in employee and the workspaces they may use.
type SessionView struct {
	Identity      model.Identity   `json:"identity"`
	Roles         []model.RoleInfo `json:"roles"`
	ActiveRole    model.Role       `json:"active_role"`
	EffectiveRole model.Role       `json:"effective_role"`
	Dashboard     string           `json:"dashboard"`
}

func sessionView(c *fiber.Ctx, id model.Identity) SessionView {
	active := middleware.ActiveRoleFrom(c)
	held := id.Roles()
	roles := make([]model.RoleInfo, 0, len(held))
	for _, r := range held {
		roles = append(roles, r.Info())
	}
	return SessionView{
		Identity:      id,
		Roles:         roles,
		ActiveRole:    active,
		EffectiveRole: model.EffectiveRole(id),
		Dashboard:     model.DefaultDashboard(active),
	}
}

// Get returns the current session
// GET /api/session
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	id, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, sessionView(c, id))
}

type SetActiveRoleRequest struct {
	Role string `json:"role"`
}

// SetActiveRole switches the workspace of a dual-role employee
// PUT /api/session/active-role
func (h *SessionHandler) SetActiveRole(c *fiber.Ctx) error {
	id, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	var req SetActiveRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	role, valid := model.ParseRole(req.Role)
	if !valid {
		return fail(c, fiber.StatusBadRequest, "Unknown role")
	}
	if !id.Holds(role) {
		return fail(c, fiber.StatusForbidden, "Forbidden")
	}

	store := middleware.ActiveRoles(c)
	if store == nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	if err := store.SetActiveRole(role); err != nil {
		return fromError(c, err)
	}
	log.Printf("active role switched user=%s role=%s", id.ID, role)
	return ok(c, sessionView(c, id))
}

type RoleHandler struct{}

func NewRoleHandler() *RoleHandler {
	return &RoleHandler{}
}

// GetRoles returns all available roles
// GET /api/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	all := model.AllRoles()
	out := make([]model.RoleInfo, 0, len(all))
	for _, r := range all {
		out = append(out, r.Info())
	}
	return ok(c, out)
}
