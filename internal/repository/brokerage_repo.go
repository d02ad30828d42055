package repository

import (
	"time"

	"go-brokerage-crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BrokerageFilter selects records by trade date range and optional dealer.
type BrokerageFilter struct {
	From     time.Time
	To       time.Time
	DealerID *uuid.UUID
	Segment  model.Segment
}

// DailyBrokerage is one point of the brokerage trend chart.
type DailyBrokerage struct {
	Date   string `json:"date"`
	Equity int64  `json:"equity"`
	MF     int64  `json:"mf"`
}

type BrokerageRepository interface {
	CreateUpload(upload *model.BrokerageUpload, records []model.BrokerageRecord) error
	FindUploads(limit int) ([]model.BrokerageUpload, error)
	FindRecords(filter BrokerageFilter) ([]model.BrokerageRecord, error)
	Summary(filter BrokerageFilter) ([]model.BrokerageSummary, error)
	Total(filter BrokerageFilter) (int64, error)
	Daily(filter BrokerageFilter) ([]DailyBrokerage, error)
}

type brokerageRepo struct {
	db *gorm.DB
}

func NewBrokerageRepo(db *gorm.DB) BrokerageRepository {
	return &brokerageRepo{db}
}

// CreateUpload stores the batch header and its records atomically.
func (r *brokerageRepo) CreateUpload(upload *model.BrokerageUpload, records []model.BrokerageRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(upload).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		for i := range records {
			records[i].UploadID = upload.ID
			records[i].CreatedBy = upload.CreatedBy
		}
		return tx.CreateInBatches(records, 500).Error
	})
}

func (r *brokerageRepo) FindUploads(limit int) ([]model.BrokerageUpload, error) {
	var uploads []model.BrokerageUpload
	query := r.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&uploads).Error
	return uploads, err
}

func (r *brokerageRepo) scoped(filter BrokerageFilter) *gorm.DB {
	query := r.db.Model(&model.BrokerageRecord{}).
		Where("trade_date BETWEEN ? AND ?", filter.From, filter.To)
	if filter.DealerID != nil {
		query = query.Where("dealer_id = ?", *filter.DealerID)
	}
	if filter.Segment != "" {
		query = query.Where("segment = ?", filter.Segment)
	}
	return query
}

func (r *brokerageRepo) FindRecords(filter BrokerageFilter) ([]model.BrokerageRecord, error) {
	var records []model.BrokerageRecord
	err := r.scoped(filter).Order("trade_date DESC, client_code ASC").Find(&records).Error
	return records, err
}

func (r *brokerageRepo) Summary(filter BrokerageFilter) ([]model.BrokerageSummary, error) {
	rows, err := r.scoped(filter).
		Select("client_code, segment, COUNT(*) AS trades, COALESCE(SUM(amount), 0) AS amount").
		Group("client_code, segment").
		Order("amount DESC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.BrokerageSummary
	for rows.Next() {
		var s model.BrokerageSummary
		if err := rows.Scan(&s.ClientCode, &s.Segment, &s.Trades, &s.Amount); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

func (r *brokerageRepo) Total(filter BrokerageFilter) (int64, error) {
	var total int64
	err := r.scoped(filter).Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return total, err
}

func (r *brokerageRepo) Daily(filter BrokerageFilter) ([]DailyBrokerage, error) {
	rows, err := r.scoped(filter).
		Select(`
			TO_CHAR(trade_date, 'YYYY-MM-DD') AS date,
			COALESCE(SUM(CASE WHEN segment = 'EQUITY' THEN amount ELSE 0 END), 0) AS equity,
			COALESCE(SUM(CASE WHEN segment = 'MF' THEN amount ELSE 0 END), 0) AS mf
		`).
		Group("trade_date").
		Order("trade_date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DailyBrokerage
	for rows.Next() {
		var d DailyBrokerage
		if err := rows.Scan(&d.Date, &d.Equity, &d.MF); err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}
