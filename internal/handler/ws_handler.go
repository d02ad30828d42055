package handler

import (
	"go-brokerage-crm/internal/middleware"
	"go-brokerage-crm/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const localSocketUser = "ws_user"

type WSHandler struct {
	hub *ws.Hub
}

func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Upgrade admits websocket upgrades from signed-in employees only.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.SendStatus(fiber.StatusUpgradeRequired)
	}
	id := middleware.IdentityFrom(c)
	if id == nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	c.Locals(localSocketUser, id.ID)
	return c.Next()
}

// Serve keeps the socket registered with the hub until the browser goes away.
// GET /ws
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(localSocketUser).(uuid.UUID)
		client := &ws.Client{UserID: userID, Conn: conn}
		if !h.hub.Join(client) {
			conn.Close()
			return
		}
		defer h.hub.Leave(client)

		for {
			// Keep alive loop; the browser never sends anything we act on.
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	})
}
