package repository

import (
	"time"

	"go-brokerage-crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskFilter narrows task listings. AssigneeID restricts to one employee's tasks.
type TaskFilter struct {
	AssigneeID *uuid.UUID
	ClientID   *uuid.UUID
	Status     model.TaskStatus
	DueBefore  *time.Time
}

// TaskCounts is a per-status tally.
type TaskCounts struct {
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
	Overdue    int64 `json:"overdue"`
}

type TaskRepository interface {
	Create(task *model.Task) error
	FindByID(id uuid.UUID) (*model.Task, error)
	FindAll(filter TaskFilter) ([]model.Task, error)
	UpdateStatus(id uuid.UUID, status model.TaskStatus, completedAt *time.Time, updatedBy string) error
	Counts(assigneeID *uuid.UUID, now time.Time) (*TaskCounts, error)
}

type taskRepo struct {
	db *gorm.DB
}

func NewTaskRepo(db *gorm.DB) TaskRepository {
	return &taskRepo{db}
}

func (r *taskRepo) Create(task *model.Task) error {
	return r.db.Omit("Client", "Assignee").Create(task).Error
}

func (r *taskRepo) FindByID(id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := r.db.Preload("Client").Preload("Assignee").First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepo) FindAll(filter TaskFilter) ([]model.Task, error) {
	query := r.db.Preload("Client").Preload("Assignee")
	if filter.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date <= ?", *filter.DueBefore)
	}

	var tasks []model.Task
	if err := query.Order("due_date ASC NULLS LAST, created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepo) UpdateStatus(id uuid.UUID, status model.TaskStatus, completedAt *time.Time, updatedBy string) error {
	res := r.db.Model(&model.Task{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       status,
		"completed_at": completedAt,
		"updated_by":   updatedBy,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *taskRepo) Counts(assigneeID *uuid.UUID, now time.Time) (*TaskCounts, error) {
	scope := func() *gorm.DB {
		q := r.db.Model(&model.Task{})
		if assigneeID != nil {
			q = q.Where("assignee_id = ?", *assigneeID)
		}
		return q
	}

	var counts TaskCounts
	err := scope().Select(`
			COALESCE(SUM(CASE WHEN status = 'PENDING' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = 'IN_PROGRESS' THEN 1 ELSE 0 END), 0) AS in_progress,
			COALESCE(SUM(CASE WHEN status = 'COMPLETED' THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN status = 'CANCELLED' THEN 1 ELSE 0 END), 0) AS cancelled
		`).Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	err = scope().
		Where("status IN ?", []model.TaskStatus{model.TaskPending, model.TaskInProgress}).
		Where("due_date < ?", now.Truncate(24*time.Hour)).
		Count(&counts.Overdue).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}
