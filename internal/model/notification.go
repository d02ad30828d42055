package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds
const (
	NotifyTaskAssigned    = "TASK_ASSIGNED"
	NotifyTaskUpdated     = "TASK_UPDATED"
	NotifyBrokerageUpload = "BROKERAGE_UPLOADED"
	NotifyGeneral         = "GENERAL"
)

// Notification is an in-app message for a single employee.
type Notification struct {
	BaseModel
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Message     string     `gorm:"type:text" json:"message"`
	Kind        string     `gorm:"type:varchar(32);default:'GENERAL'" json:"kind"`
	Link        string     `gorm:"type:varchar(255)" json:"link,omitempty"`
	IsRead      bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}
