package handler

import (
	"errors"
	"log"
	"strconv"
	"time"

	"go-brokerage-crm/internal/authz"
	"go-brokerage-crm/internal/middleware"
	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(Response{Success: true, Data: data})
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: data})
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(Response{Success: false, Error: msg})
}

// StatusFor maps service and authorization errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, authz.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrEmptyUpload),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidOTP),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrSelfDelete):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrClientCodeExists),
		errors.Is(err, service.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge
	default:
		return fiber.StatusInternalServerError
	}
}

// fromError writes the envelope for err. Internal failures are logged and
// reported without detail.
func fromError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	switch status {
	case fiber.StatusInternalServerError:
		log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
		return fail(c, status, "Internal server error")
	case fiber.StatusUnauthorized:
		return fail(c, status, "Unauthorized")
	case fiber.StatusForbidden:
		return fail(c, status, "Forbidden")
	default:
		return fail(c, status, err.Error())
	}
}

// ErrorHandler is the fiber error handler; errors that escape a handler still
// leave as an envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fail(c, fe.Code, fe.Message)
	}
	return fromError(c, err)
}

// actor returns the caller identity. Routes are mounted behind RequireSession,
// so a missing identity is a wiring bug reported as 401.
func actor(c *fiber.Ctx) (model.Identity, error) {
	id := middleware.IdentityFrom(c)
	if id == nil {
		return model.Identity{}, authz.ErrUnauthenticated
	}
	return *id, nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, &service.ValidationError{Message: "Invalid " + name}
	}
	return id, nil
}

func queryUUID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &service.ValidationError{Message: "Invalid " + name}
	}
	return &id, nil
}

func queryDate(c *fiber.Ctx, name string, fallback time.Time) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, &service.ValidationError{Message: "Invalid " + name + ", expected YYYY-MM-DD"}
	}
	return t, nil
}

func queryInt(c *fiber.Ctx, name string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil && v >= 0 {
		return v
	}
	return fallback
}

func invalidJSON(c *fiber.Ctx) error {
	return fail(c, fiber.StatusBadRequest, "Invalid JSON")
}
