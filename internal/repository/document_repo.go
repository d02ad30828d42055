package repository

import (
	"go-brokerage-crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(doc *model.Document) error
	FindByID(id uuid.UUID) (*model.Document, error)
	FindByClient(clientID uuid.UUID) ([]model.Document, error)
	FindAll(category string) ([]model.Document, error)
}

type documentRepo struct {
	db *gorm.DB
}

func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db}
}

func (r *documentRepo) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

func (r *documentRepo) FindByID(id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) FindByClient(clientID uuid.UUID) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Where("client_id = ?", clientID).Order("created_at DESC").Find(&docs).Error
	return docs, err
}

func (r *documentRepo) FindAll(category string) ([]model.Document, error) {
	query := r.db.Order("created_at DESC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var docs []model.Document
	err := query.Find(&docs).Error
	return docs, err
}
