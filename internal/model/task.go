package model

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCancelled  TaskStatus = "CANCELLED"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

// Task is a unit of follow-up work assigned to an employee, optionally about a client.
type Task struct {
	BaseModel
	Title       string       `gorm:"type:varchar(255);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	ClientID    *uuid.UUID   `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Client      *Client      `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	AssigneeID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"assignee_id"`
	Assignee    *Employee    `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	CreatorID   uuid.UUID    `gorm:"type:uuid;not null" json:"creator_id"`
	DueDate     *time.Time   `gorm:"type:date;index" json:"due_date,omitempty"`
	Priority    TaskPriority `gorm:"type:varchar(10);default:'MEDIUM'" json:"priority"`
	Status      TaskStatus   `gorm:"type:varchar(16);default:'PENDING';index" json:"status"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// TaskResponse for API responses
type TaskResponse struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	ClientID    *uuid.UUID        `json:"client_id,omitempty"`
	ClientName  string            `json:"client_name,omitempty"`
	AssigneeID  uuid.UUID         `json:"assignee_id"`
	Assignee    *EmployeeResponse `json:"assignee,omitempty"`
	CreatorID   uuid.UUID         `json:"creator_id"`
	DueDate     string            `json:"due_date,omitempty"`
	Priority    TaskPriority      `json:"priority"`
	Status      TaskStatus        `json:"status"`
	Overdue     bool              `json:"overdue"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ToResponse converts Task to TaskResponse, evaluating overdue against now.
func (t *Task) ToResponse(now time.Time) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		ClientID:    t.ClientID,
		AssigneeID:  t.AssigneeID,
		CreatorID:   t.CreatorID,
		Priority:    t.Priority,
		Status:      t.Status,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
	}
	if t.DueDate != nil {
		resp.DueDate = t.DueDate.Format("2006-01-02")
		resp.Overdue = t.Open() && now.After(t.DueDate.AddDate(0, 0, 1))
	}
	if t.Client != nil {
		resp.ClientName = t.Client.Name
	}
	if t.Assignee != nil {
		a := t.Assignee.ToResponse()
		resp.Assignee = &a
	}
	return resp
}

// Open reports whether the task still needs work.
func (t *Task) Open() bool {
	return t.Status == TaskPending || t.Status == TaskInProgress
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to TaskStatus) bool {
	switch from {
	case TaskPending:
		return to == TaskInProgress || to == TaskCompleted || to == TaskCancelled
	case TaskInProgress:
		return to == TaskCompleted || to == TaskCancelled || to == TaskPending
	default:
		return false
	}
}
