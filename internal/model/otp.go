package model

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetOTP is a one-time code mailed for password recovery. Only the
// bcrypt hash of the code is stored.
type PasswordResetOTP struct {
	BaseModel
	EmployeeID uuid.UUID  `gorm:"type:uuid;not null;index" json:"employee_id"`
	CodeHash   string     `gorm:"type:varchar(255);not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	Attempts   int        `gorm:"default:0" json:"attempts"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// Usable reports whether the code may still be tried at now.
func (o *PasswordResetOTP) Usable(now time.Time, maxAttempts int) bool {
	return o.ConsumedAt == nil && now.Before(o.ExpiresAt) && o.Attempts < maxAttempts
}
