package repository

import (
	"time"

	"go-brokerage-crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(n *model.Notification) error
	CreateMany(ns []model.Notification) error
	FindForRecipient(recipientID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(id, recipientID uuid.UUID, at time.Time) error
	MarkAllRead(recipientID uuid.UUID, at time.Time) (int64, error)
	CountUnread(recipientID uuid.UUID) (int64, error)
}

type notificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db}
}

func (r *notificationRepo) Create(n *model.Notification) error {
	return r.db.Create(n).Error
}

func (r *notificationRepo) CreateMany(ns []model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.CreateInBatches(ns, 100).Error
}

func (r *notificationRepo) FindForRecipient(recipientID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error) {
	query := r.db.Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var out []model.Notification
	if err := query.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead only touches notifications owned by recipientID; another
// employee's notification reads as not found.
func (r *notificationRepo) MarkRead(id, recipientID uuid.UUID, at time.Time) error {
	res := r.db.Model(&model.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *notificationRepo) MarkAllRead(recipientID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *notificationRepo) CountUnread(recipientID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}
