package service

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"go-brokerage-crm/internal/authz"
	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSelfDelete = errors.New("cannot delete your own account")

type EmployeeService interface {
	List(filter repository.EmployeeFilter) ([]model.EmployeeResponse, error)
	Get(id uuid.UUID) (*model.EmployeeResponse, error)
	Create(actor model.Identity, req *CreateEmployeeRequest) (*model.EmployeeResponse, error)
	Update(actor model.Identity, id uuid.UUID, req *UpdateEmployeeRequest) (*model.EmployeeResponse, error)
	Delete(actor model.Identity, id uuid.UUID) error
	SeedSuperAdmin(email, password, name string) (bool, error)
	ResetPassword(email, password string) error
}

type CreateEmployeeRequest struct {
	Name          string  `json:"name" validate:"required,max=255"`
	Email         string  `json:"email" validate:"required,email"`
	Password      string  `json:"password" validate:"required,min=8"`
	Phone         string  `json:"phone" validate:"omitempty,max=20"`
	Role          string  `json:"role" validate:"required,crm_role"`
	SecondaryRole *string `json:"secondary_role" validate:"omitempty,crm_role"`
	Department    string  `json:"department" validate:"omitempty,max=100"`
	Designation   string  `json:"designation" validate:"omitempty,max=100"`
}

type UpdateEmployeeRequest struct {
	Name          string  `json:"name" validate:"required,max=255"`
	Email         string  `json:"email" validate:"required,email"`
	Password      *string `json:"password,omitempty" validate:"omitempty,min=8"`
	Phone         string  `json:"phone" validate:"omitempty,max=20"`
	Role          string  `json:"role" validate:"required,crm_role"`
	SecondaryRole *string `json:"secondary_role" validate:"omitempty,crm_role"`
	Department    string  `json:"department" validate:"omitempty,max=100"`
	Designation   string  `json:"designation" validate:"omitempty,max=100"`
	IsActive      *bool   `json:"is_active"`
}

type employeeService struct {
	employeeRepo repository.EmployeeRepository
}

func NewEmployeeService(employeeRepo repository.EmployeeRepository) EmployeeService {
	return &employeeService{employeeRepo: employeeRepo}
}

func (s *employeeService) List(filter repository.EmployeeFilter) ([]model.EmployeeResponse, error) {
	employees, err := s.employeeRepo.FindAll(filter)
	if err != nil {
		return nil, err
	}
	out := make([]model.EmployeeResponse, 0, len(employees))
	for i := range employees {
		out = append(out, employees[i].ToResponse())
	}
	return out, nil
}

func (s *employeeService) Get(id uuid.UUID) (*model.EmployeeResponse, error) {
	employee, err := s.employeeRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	resp := employee.ToResponse()
	return &resp, nil
}

// roles parses the primary and optional secondary role of a request. An
// empty secondary clears it.
func roles(primary string, secondary *string) (model.Role, *model.Role, error) {
	p, ok := model.ParseRole(primary)
	if !ok {
		return "", nil, invalid("Validation failed: unknown role")
	}
	if secondary == nil || strings.TrimSpace(*secondary) == "" {
		return p, nil, nil
	}
	sr, ok := model.ParseRole(*secondary)
	if !ok {
		return "", nil, invalid("Validation failed: unknown secondary role")
	}
	return p, &sr, nil
}

// emailFree checks the live rows only; soft-deleted employees release their email.
func (s *employeeService) emailFree(email string, self uuid.UUID) error {
	existing, err := s.employeeRepo.FindByEmail(email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("lookup email: %w", err)
	case existing.ID != self:
		return ErrEmailExists
	}
	return nil
}

func heldRoles(p model.Role, sr *model.Role) []model.Role {
	if sr == nil {
		return []model.Role{p}
	}
	return []model.Role{p, *sr}
}

func (s *employeeService) Create(actor model.Identity, req *CreateEmployeeRequest) (*model.EmployeeResponse, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}
	primary, secondary, err := roles(req.Role, req.SecondaryRole)
	if err != nil {
		return nil, err
	}

	// 2. Admins may only create non-admin employees
	if !authz.CanManageEmployee(actor, heldRoles(primary, secondary)...) {
		return nil, authz.ErrForbidden
	}

	// 3. Email must be unique
	email := model.NormalizeEmail(req.Email)
	if err := s.emailFree(email, uuid.Nil); err != nil {
		return nil, err
	}

	employee := &model.Employee{
		Name:          strings.TrimSpace(req.Name),
		Email:         email,
		Phone:         req.Phone,
		Role:          primary,
		SecondaryRole: secondary,
		Department:    req.Department,
		Designation:   req.Designation,
		IsActive:      true,
	}
	employee.CreatedBy = actorID(actor.ID)
	employee.UpdatedBy = actorID(actor.ID)
	if err := employee.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// 4. Persist
	if err := s.employeeRepo.Create(employee); err != nil {
		return nil, duplicate(err, ErrEmailExists)
	}
	log.Printf("employee created id=%s role=%s by=%s", employee.ID, employee.Role, actor.ID)
	resp := employee.ToResponse()
	return &resp, nil
}

func (s *employeeService) Update(actor model.Identity, id uuid.UUID, req *UpdateEmployeeRequest) (*model.EmployeeResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	primary, secondary, err := roles(req.Role, req.SecondaryRole)
	if err != nil {
		return nil, err
	}

	employee, err := s.employeeRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err)
	}

	// Both the current and the requested roles must be manageable by the actor.
	if !authz.CanManageEmployee(actor, append(heldRoles(employee.Role, employee.SecondaryRole), heldRoles(primary, secondary)...)...) {
		return nil, authz.ErrForbidden
	}

	email := model.NormalizeEmail(req.Email)
	if email != employee.Email {
		if err := s.emailFree(email, employee.ID); err != nil {
			return nil, err
		}
	}

	employee.Name = strings.TrimSpace(req.Name)
	employee.Email = email
	employee.Phone = req.Phone
	employee.Role = primary
	employee.SecondaryRole = secondary
	employee.Department = req.Department
	employee.Designation = req.Designation
	employee.UpdatedBy = actorID(actor.ID)
	if req.IsActive != nil {
		if !*req.IsActive && employee.ID == actor.ID {
			return nil, invalid("Validation failed: cannot deactivate your own account")
		}
		employee.IsActive = *req.IsActive
	}
	if req.Password != nil && *req.Password != "" {
		if err := employee.SetPassword(*req.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	if err := s.employeeRepo.Update(employee); err != nil {
		return nil, duplicate(err, ErrEmailExists)
	}
	resp := employee.ToResponse()
	return &resp, nil
}

func (s *employeeService) Delete(actor model.Identity, id uuid.UUID) error {
	if id == actor.ID {
		return ErrSelfDelete
	}
	employee, err := s.employeeRepo.FindByID(id)
	if err != nil {
		return notFound(err)
	}
	if !authz.CanManageEmployee(actor, heldRoles(employee.Role, employee.SecondaryRole)...) {
		return authz.ErrForbidden
	}
	if err := s.employeeRepo.Delete(id, actorID(actor.ID)); err != nil {
		return err
	}
	log.Printf("employee deleted id=%s by=%s", id, actor.ID)
	return nil
}

// SeedSuperAdmin creates the first super admin when the employee table is
// empty. It reports whether an account was created.
func (s *employeeService) SeedSuperAdmin(email, password, name string) (bool, error) {
	email = model.NormalizeEmail(email)
	if email == "" || len(password) < MinPasswordLen {
		return false, invalid("Validation failed: seed admin needs an email and a password of 8+ characters")
	}
	n, err := s.employeeRepo.Count()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if name == "" {
		name = "Super Administrator"
	}
	admin := &model.Employee{
		Name:     name,
		Email:    email,
		Role:     model.RoleSuperAdmin,
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"
	if err := admin.SetPassword(password); err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	if err := s.employeeRepo.Create(admin); err != nil {
		return false, err
	}
	return true, nil
}

// ResetPassword sets a password without the current one; used by the admin CLI.
func (s *employeeService) ResetPassword(email, password string) error {
	if len(password) < MinPasswordLen {
		return ErrWeakPassword
	}
	employee, err := s.employeeRepo.FindByEmail(model.NormalizeEmail(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := employee.SetPassword(password); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.employeeRepo.UpdatePassword(employee.ID, employee.Password)
}
