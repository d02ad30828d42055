package model

import (
	"time"

	"github.com/google/uuid"
)

// Upload statuses
const (
	UploadProcessed = "PROCESSED"
	UploadPartial   = "PARTIAL"
	UploadFailed    = "FAILED"
)

// BrokerageUpload records one CSV file imported by an admin.
type BrokerageUpload struct {
	BaseModel
	FileName     string    `gorm:"type:varchar(255);not null" json:"file_name"`
	UploadedByID uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by_id"`
	RowCount     int       `json:"row_count"`
	SkippedRows  int       `json:"skipped_rows"`
	TotalAmount  int64     `json:"total_amount"` // paise
	Status       string    `gorm:"type:varchar(16)" json:"status"`
}

// BrokerageRecord is a single brokerage line. Amounts are stored in paise.
type BrokerageRecord struct {
	BaseModel
	UploadID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"upload_id"`
	ClientCode string     `gorm:"type:varchar(32);not null;index" json:"client_code"`
	TradeDate  time.Time  `gorm:"type:date;not null;index" json:"trade_date"`
	Segment    Segment    `gorm:"type:varchar(10);not null" json:"segment"`
	Amount     int64      `gorm:"not null" json:"amount"`
	DealerID   *uuid.UUID `gorm:"type:uuid;index" json:"dealer_id,omitempty"`
}

// BrokerageSummary aggregates brokerage per client over a period.
type BrokerageSummary struct {
	ClientCode string `json:"client_code"`
	Segment    string `json:"segment"`
	Trades     int64  `json:"trades"`
	Amount     int64  `json:"amount"`
}
