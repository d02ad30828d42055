package repository

import (
	"time"

	"go-brokerage-crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OTPRepository interface {
	// Replace invalidates any outstanding code for the employee and stores otp.
	Replace(otp *model.PasswordResetOTP) error
	FindLatest(employeeID uuid.UUID) (*model.PasswordResetOTP, error)
	IncrementAttempts(id uuid.UUID) error
	Consume(id uuid.UUID, at time.Time) error
}

type otpRepo struct {
	db *gorm.DB
}

func NewOTPRepo(db *gorm.DB) OTPRepository {
	return &otpRepo{db}
}

func (r *otpRepo) Replace(otp *model.PasswordResetOTP) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ? AND consumed_at IS NULL", otp.EmployeeID).
			Delete(&model.PasswordResetOTP{}).Error; err != nil {
			return err
		}
		return tx.Create(otp).Error
	})
}

func (r *otpRepo) FindLatest(employeeID uuid.UUID) (*model.PasswordResetOTP, error) {
	var otp model.PasswordResetOTP
	err := r.db.Where("employee_id = ? AND consumed_at IS NULL", employeeID).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

func (r *otpRepo) IncrementAttempts(id uuid.UUID) error {
	return r.db.Model(&model.PasswordResetOTP{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}

func (r *otpRepo) Consume(id uuid.UUID, at time.Time) error {
	res := r.db.Model(&model.PasswordResetOTP{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
