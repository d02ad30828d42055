package repository

import (
	"go-brokerage-crm/internal/model"

	"gorm.io/gorm"
)

// Full unique indexes from before soft-deleted rows released their keys.
var legacyIndexes = []struct {
	model any
	name  string
}{
	{&model.Employee{}, "idx_employees_email"},
	{&model.Client{}, "idx_clients_client_code"},
}

// AutoMigrate creates or updates every CRM table.
func AutoMigrate(db *gorm.DB) error {
	m := db.Migrator()
	for _, idx := range legacyIndexes {
		if m.HasIndex(idx.model, idx.name) {
			if err := m.DropIndex(idx.model, idx.name); err != nil {
				return err
			}
		}
	}
	return db.AutoMigrate(
		&model.Employee{},
		&model.Client{},
		&model.Task{},
		&model.Notification{},
		&model.BrokerageUpload{},
		&model.BrokerageRecord{},
		&model.Document{},
		&model.PasswordResetOTP{},
	)
}
