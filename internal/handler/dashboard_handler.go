package handler

import (
	"go-brokerage-crm/internal/middleware"
	"go-brokerage-crm/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetDashboardStats returns the admin overview
// GET /api/dashboard/stats?days=30
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	days := queryInt(c, "days", 30)
	if days <= 0 || days > 366 {
		days = 30
	}
	stats, err := h.service.GetStats(me, days)
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, stats)
}

// GetMySummary returns the landing summary for the caller's active role
// GET /api/dashboard/me
func (h *DashboardHandler) GetMySummary(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	summary, err := h.service.GetMine(me, middleware.ActiveRoleFrom(c))
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, summary)
}
