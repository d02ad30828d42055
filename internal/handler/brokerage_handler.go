package handler

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"
	"go-brokerage-crm/internal/service"

	"github.com/gofiber/fiber/v2"
)

type BrokerageHandler struct {
	brokerageService service.BrokerageService
	now              func() time.Time
}

func NewBrokerageHandler(brokerageService service.BrokerageService) *BrokerageHandler {
	return &BrokerageHandler{brokerageService: brokerageService, now: time.Now}
}

// brokerageFilter reads from/to (YYYY-MM-DD, inclusive). The default window is
// the current month to date.
func (h *BrokerageHandler) brokerageFilter(c *fiber.Ctx) (repository.BrokerageFilter, error) {
	now := h.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	from, err := queryDate(c, "from", time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.Local))
	if err != nil {
		return repository.BrokerageFilter{}, err
	}
	to, err := queryDate(c, "to", today)
	if err != nil {
		return repository.BrokerageFilter{}, err
	}
	dealer, err := queryUUID(c, "dealer_id")
	if err != nil {
		return repository.BrokerageFilter{}, err
	}
	return repository.BrokerageFilter{
		From:     from,
		To:       to,
		DealerID: dealer,
		Segment:  model.Segment(c.Query("segment")),
	}, nil
}

// UploadBrokerage imports a brokerage CSV sent as multipart field "file"
// POST /api/brokerage/upload
func (h *BrokerageHandler) UploadBrokerage(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return fromError(c, fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()

	result, err := h.brokerageService.Upload(me, fh.Filename, f)
	if errors.Is(err, service.ErrEmptyUpload) && result != nil {
		// Row errors explain why nothing was imported.
		return c.Status(fiber.StatusBadRequest).JSON(Response{Success: false, Data: result, Error: err.Error()})
	}
	if err != nil {
		return fromError(c, err)
	}
	return created(c, result)
}

// GetReport returns totals, per-client summary and the daily trend
// GET /api/brokerage?from=&to=&dealer_id=&segment=
func (h *BrokerageHandler) GetReport(c *fiber.Ctx) error {
	filter, err := h.brokerageFilter(c)
	if err != nil {
		return fromError(c, err)
	}
	report, err := h.brokerageService.Report(filter)
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, report)
}

// ExportReport downloads the per-client summary as CSV
// GET /api/brokerage/export
func (h *BrokerageHandler) ExportReport(c *fiber.Ctx) error {
	filter, err := h.brokerageFilter(c)
	if err != nil {
		return fromError(c, err)
	}
	if filter.To.Before(filter.From) {
		return fail(c, fiber.StatusBadRequest, "'to' is before 'from'")
	}
	var buf bytes.Buffer
	if err := h.brokerageService.ExportCSV(&buf, filter); err != nil {
		return fromError(c, err)
	}
	name := fmt.Sprintf("brokerage-%s-%s.csv", filter.From.Format("20060102"), filter.To.Format("20060102"))
	return sendCSV(c, name, buf.Bytes())
}
