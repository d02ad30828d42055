package handler

import (
	"go-brokerage-crm/internal/service"

	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// GetNotifications returns the caller's notifications and unread count
// GET /api/notifications?unread=true&limit=50
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	list, err := h.notificationService.List(me.ID, c.QueryBool("unread", false), queryInt(c, "limit", 0))
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, list)
}

// MarkRead marks one of the caller's notifications as read
// PATCH /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return fromError(c, err)
	}
	if err := h.notificationService.MarkRead(me.ID, id); err != nil {
		return fromError(c, err)
	}
	return ok(c, fiber.Map{"message": "Notification marked as read"})
}

// MarkAllRead clears the caller's unread notifications
// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	n, err := h.notificationService.MarkAllRead(me.ID)
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, fiber.Map{"updated": n})
}
