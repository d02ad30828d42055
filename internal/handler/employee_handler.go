package handler

import (
	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"
	"go-brokerage-crm/internal/service"

	"github.com/gofiber/fiber/v2"
)

type EmployeeHandler struct {
	employeeService service.EmployeeService
}

func NewEmployeeHandler(employeeService service.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{employeeService: employeeService}
}

// GetEmployees returns the employee master
// GET /api/employees?role=&active=&q=
func (h *EmployeeHandler) GetEmployees(c *fiber.Ctx) error {
	filter := repository.EmployeeFilter{
		ActiveOnly: c.QueryBool("active", false),
		Search:     c.Query("q"),
	}
	if raw := c.Query("role"); raw != "" {
		r, valid := model.ParseRole(raw)
		if !valid {
			return fail(c, fiber.StatusBadRequest, "Unknown role")
		}
		filter.Role = r
	}

	employees, err := h.employeeService.List(filter)
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, employees)
}

// GetEmployee returns one employee
// GET /api/employees/:id
func (h *EmployeeHandler) GetEmployee(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fromError(c, err)
	}
	employee, err := h.employeeService.Get(id)
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, employee)
}

// CreateEmployee handles employee creation
// POST /api/employees
func (h *EmployeeHandler) CreateEmployee(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	var req service.CreateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	employee, err := h.employeeService.Create(me, &req)
	if err != nil {
		return fromError(c, err)
	}
	return created(c, employee)
}

// UpdateEmployee handles employee edits, including role and activation changes
// PUT /api/employees/:id
func (h *EmployeeHandler) UpdateEmployee(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return fromError(c, err)
	}
	var req service.UpdateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	employee, err := h.employeeService.Update(me, id, &req)
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, employee)
}

// DeleteEmployee soft-deletes an employee
// DELETE /api/employees/:id
func (h *EmployeeHandler) DeleteEmployee(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return fromError(c, err)
	}
	if err := h.employeeService.Delete(me, id); err != nil {
		return fromError(c, err)
	}
	return ok(c, fiber.Map{"message": "Employee deleted successfully"})
}
