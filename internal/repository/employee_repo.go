package repository

import (
	"strings"
	"time"

	"go-brokerage-crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmployeeFilter narrows employee listings. Zero values mean "any".
type EmployeeFilter struct {
	Role       model.Role // matches primary or secondary role
	ActiveOnly bool
	Search     string
}

// EmployeeRepository is the credential store and employee master.
type EmployeeRepository interface {
	FindByEmail(normalizedEmail string) (*model.Employee, error)
	FindByID(id uuid.UUID) (*model.Employee, error)
	FindAll(filter EmployeeFilter) ([]model.Employee, error)
	Create(employee *model.Employee) error
	Update(employee *model.Employee) error
	Delete(id uuid.UUID, deletedBy string) error
	UpdatePassword(id uuid.UUID, hashedPassword string) error
	UpdateLastLogin(id uuid.UUID, at time.Time) error
	Count() (int64, error)
}

type employeeRepo struct {
	db *gorm.DB
}

func NewEmployeeRepo(db *gorm.DB) EmployeeRepository {
	return &employeeRepo{db}
}

func (r *employeeRepo) FindByEmail(normalizedEmail string) (*model.Employee, error) {
	var employee model.Employee
	if err := r.db.Where("email = ?", normalizedEmail).First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepo) FindByID(id uuid.UUID) (*model.Employee, error) {
	var employee model.Employee
	if err := r.db.First(&employee, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepo) FindAll(filter EmployeeFilter) ([]model.Employee, error) {
	query := r.db.Model(&model.Employee{})
	if filter.Role != "" {
		query = query.Where("role = ? OR secondary_role = ?", filter.Role, filter.Role)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR email LIKE ?", like, like)
	}

	var employees []model.Employee
	if err := query.Order("name ASC").Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *employeeRepo) Create(employee *model.Employee) error {
	return r.db.Create(employee).Error
}

func (r *employeeRepo) Update(employee *model.Employee) error {
	return r.db.Save(employee).Error
}

func (r *employeeRepo) Delete(id uuid.UUID, deletedBy string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Employee{}).Where("id = ?", id).
			Updates(map[string]interface{}{"deleted_by": deletedBy, "is_active": false}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Employee{}, "id = ?", id).Error
	})
}

func (r *employeeRepo) UpdatePassword(id uuid.UUID, hashedPassword string) error {
	return r.db.Model(&model.Employee{}).Where("id = ?", id).Update("password", hashedPassword).Error
}

func (r *employeeRepo) UpdateLastLogin(id uuid.UUID, at time.Time) error {
	return r.db.Model(&model.Employee{}).Where("id = ?", id).Update("last_login_at", at).Error
}

func (r *employeeRepo) Count() (int64, error) {
	var n int64
	err := r.db.Model(&model.Employee{}).Count(&n).Error
	return n, err
}
