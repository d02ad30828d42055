package handler

import (
	"bytes"
	"fmt"
	"time"

	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"
	"go-brokerage-crm/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ClientHandler struct {
	clientService service.ClientService
}

func NewClientHandler(clientService service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

func clientFilter(c *fiber.Ctx) (repository.ClientFilter, error) {
	dealer, err := queryUUID(c, "dealer_id")
	if err != nil {
		return repository.ClientFilter{}, err
	}
	return repository.ClientFilter{
		DealerID: dealer,
		Segment:  model.Segment(c.Query("segment")),
		Status:   c.Query("status"),
		Search:   c.Query("q"),
		Limit:    queryInt(c, "limit", 50),
		Offset:   queryInt(c, "offset", 0),
	}, nil
}

// GetClients lists clients; dealers only see clients assigned to them
// GET /api/clients?segment=&status=&q=&dealer_id=&limit=&offset=
func (h *ClientHandler) GetClients(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	filter, err := clientFilter(c)
	if err != nil {
		return fromError(c, err)
	}
	clients, total, err := h.clientService.List(me, filter)
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, fiber.Map{"items": clients, "total": total})
}

// GetClient returns one client
// GET /api/clients/:id
func (h *ClientHandler) GetClient(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return fromError(c, err)
	}
	client, err := h.clientService.Get(me, id)
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, client)
}

// CreateClient adds a client to the master
// POST /api/clients
func (h *ClientHandler) CreateClient(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	var req service.ClientRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	client, err := h.clientService.Create(me, &req)
	if err != nil {
		return fromError(c, err)
	}
	return created(c, client)
}

// UpdateClient edits a client and its dealer assignment
// PUT /api/clients/:id
func (h *ClientHandler) UpdateClient(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return fromError(c, err)
	}
	var req service.ClientRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	client, err := h.clientService.Update(me, id, &req)
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, client)
}

// DeleteClient soft-deletes a client
// DELETE /api/clients/:id
func (h *ClientHandler) DeleteClient(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return fromError(c, err)
	}
	if err := h.clientService.Delete(me, id); err != nil {
		return fromError(c, err)
	}
	return ok(c, fiber.Map{"message": "Client deleted successfully"})
}

// ExportClients downloads the filtered client master as CSV
// GET /api/clients/export
func (h *ClientHandler) ExportClients(c *fiber.Ctx) error {
	filter, err := clientFilter(c)
	if err != nil {
		return fromError(c, err)
	}
	var buf bytes.Buffer
	if err := h.clientService.ExportCSV(&buf, filter); err != nil {
		return fromError(c, err)
	}
	return sendCSV(c, fmt.Sprintf("clients-%s.csv", time.Now().Format("20060102")), buf.Bytes())
}

func sendCSV(c *fiber.Ctx, name string, data []byte) error {
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(data)
}
