package repository

import (
	"strings"

	"go-brokerage-crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientFilter narrows client listings. DealerID restricts to clients assigned
// to that dealer on either desk.
type ClientFilter struct {
	DealerID *uuid.UUID
	Segment  model.Segment
	Status   string
	Search   string
	Limit    int
	Offset   int
}

type ClientRepository interface {
	FindAll(filter ClientFilter) ([]model.Client, int64, error)
	FindByID(id uuid.UUID) (*model.Client, error)
	FindByCodes(codes []string) ([]model.Client, error)
	Create(client *model.Client) error
	Update(client *model.Client) error
	Delete(id uuid.UUID, deletedBy string) error
	CountBySegment() (map[model.Segment]int64, error)
}

type clientRepo struct {
	db *gorm.DB
}

func NewClientRepo(db *gorm.DB) ClientRepository {
	return &clientRepo{db}
}

func (r *clientRepo) scoped(filter ClientFilter) *gorm.DB {
	query := r.db.Model(&model.Client{})
	if filter.DealerID != nil {
		query = query.Where("equity_dealer_id = ? OR mf_dealer_id = ?", *filter.DealerID, *filter.DealerID)
	}
	if filter.Segment != "" {
		query = query.Where("segment = ?", filter.Segment)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(client_code) LIKE ?", like, like)
	}
	return query
}

func (r *clientRepo) FindAll(filter ClientFilter) ([]model.Client, int64, error) {
	var total int64
	if err := r.scoped(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.scoped(filter).Preload("EquityDealer").Preload("MFDealer").Order("name ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}
	var clients []model.Client
	if err := query.Find(&clients).Error; err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

func (r *clientRepo) FindByID(id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := r.db.Preload("EquityDealer").Preload("MFDealer").First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepo) FindByCodes(codes []string) ([]model.Client, error) {
	var clients []model.Client
	if len(codes) == 0 {
		return clients, nil
	}
	if err := r.db.Where("client_code IN ?", codes).Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *clientRepo) Create(client *model.Client) error {
	return r.db.Create(client).Error
}

func (r *clientRepo) Update(client *model.Client) error {
	return r.db.Omit("EquityDealer", "MFDealer").Save(client).Error
}

func (r *clientRepo) Delete(id uuid.UUID, deletedBy string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Client{}).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Client{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

type segmentCount struct {
	Segment model.Segment
	Total   int64
}

func (r *clientRepo) CountBySegment() (map[model.Segment]int64, error) {
	var rows []segmentCount
	err := r.db.Model(&model.Client{}).
		Select("segment, COUNT(*) AS total").
		Group("segment").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.Segment]int64, len(rows))
	for _, row := range rows {
		out[row.Segment] = row.Total
	}
	return out, nil
}
