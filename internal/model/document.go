package model

import "github.com/google/uuid"

// Document categories accepted on upload.
var DocumentCategories = []string{"KYC", "AGREEMENT", "STATEMENT", "OTHER"}

// Document is a client file kept in blob storage; StorageKey locates the bytes.
type Document struct {
	BaseModel
	ClientID     uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	UploadedByID uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by_id"`
	FileName     string    `gorm:"type:varchar(255);not null" json:"file_name"`
	StorageKey   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	ContentType  string    `gorm:"type:varchar(100)" json:"content_type"`
	Size         int64     `json:"size"`
	Category     string    `gorm:"type:varchar(20);default:'OTHER'" json:"category"`
}
