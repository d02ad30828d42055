package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Employee is a CRM user. Role and SecondaryRole drive every access decision.
type Employee struct {
	BaseModel
	Name          string     `gorm:"type:varchar(255);not null" json:"name"`
	Email         string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_employees_email_live,where:deleted_at IS NULL" json:"email"`
	Password      string     `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash
	Phone         string     `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Role          Role       `gorm:"type:varchar(32);not null;index" json:"role"`
	SecondaryRole *Role      `gorm:"type:varchar(32)" json:"secondary_role,omitempty"`
	Department    string     `gorm:"type:varchar(100)" json:"department,omitempty"`
	Designation   string     `gorm:"type:varchar(100)" json:"designation,omitempty"`
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// NormalizeEmail is the credential store lookup key: trimmed and case-folded.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetPassword hashes and sets the employee's password
func (e *Employee) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	e.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (e *Employee) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(e.Password), []byte(password))
	return err == nil
}

// Identity projects the employee onto the session principal.
func (e *Employee) Identity() Identity {
	return Identity{
		ID:            e.ID,
		Name:          e.Name,
		Email:         e.Email,
		PrimaryRole:   e.Role,
		SecondaryRole: e.SecondaryRole,
		Department:    e.Department,
		Designation:   e.Designation,
	}
}

// EmployeeResponse is used for API responses (without sensitive data)
type EmployeeResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	Role          Role       `json:"role"`
	SecondaryRole *Role      `json:"secondary_role,omitempty"`
	Department    string     `json:"department,omitempty"`
	Designation   string     `json:"designation,omitempty"`
	IsActive      bool       `json:"is_active"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ToResponse converts Employee to EmployeeResponse
func (e *Employee) ToResponse() EmployeeResponse {
	return EmployeeResponse{
		ID:            e.ID,
		Name:          e.Name,
		Email:         e.Email,
		Phone:         e.Phone,
		Role:          e.Role,
		SecondaryRole: e.SecondaryRole,
		Department:    e.Department,
		Designation:   e.Designation,
		IsActive:      e.IsActive,
		LastLoginAt:   e.LastLoginAt,
		CreatedAt:     e.CreatedAt,
	}
}
