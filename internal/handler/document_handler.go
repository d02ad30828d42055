package handler

import (
	"fmt"
	"log"

	"go-brokerage-crm/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type DocumentHandler struct {
	documentService service.DocumentService
}

func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// UploadDocument stores a client document sent as multipart form
// (file, client_id, category)
// POST /api/documents
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "file is required")
	}
	clientID, err := uuid.Parse(c.FormValue("client_id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid client_id")
	}
	f, err := fh.Open()
	if err != nil {
		return fromError(c, fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()

	req := service.UploadDocumentRequest{
		ClientID:    clientID,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Category:    c.FormValue("category"),
	}
	doc, err := h.documentService.Upload(me, &req, f)
	if err != nil {
		return fromError(c, err)
	}
	log.Printf("document uploaded id=%s client=%s by=%s", doc.ID, doc.ClientID, me.ID)
	return created(c, doc)
}

// GetDocuments lists documents of one client, or all by category
// GET /api/documents?client_id=&category=
func (h *DocumentHandler) GetDocuments(c *fiber.Ctx) error {
	clientID, err := queryUUID(c, "client_id")
	if err != nil {
		return fromError(c, err)
	}
	docs, err := h.documentService.List(clientID, c.Query("category"))
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, docs)
}

// DownloadDocument streams the stored file
// GET /api/documents/:id/download
func (h *DocumentHandler) DownloadDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fromError(c, err)
	}
	doc, rc, err := h.documentService.Open(id)
	if err != nil {
		return fromError(c, err)
	}
	c.Attachment(doc.FileName)
	c.Set(fiber.HeaderContentType, doc.ContentType)
	// fasthttp closes rc once the body is written
	return c.SendStream(rc, int(doc.Size))
}
