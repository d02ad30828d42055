package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"go-brokerage-crm/internal/authz"
	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"

	"github.com/google/uuid"
)

var ErrInvalidTransition = errors.New("invalid task status transition")

type TaskService interface {
	List(actor model.Identity, filter repository.TaskFilter) ([]model.TaskResponse, error)
	Create(actor model.Identity, req *CreateTaskRequest) (*model.TaskResponse, error)
	UpdateStatus(actor model.Identity, id uuid.UUID, status model.TaskStatus) (*model.TaskResponse, error)
}

type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description"`
	ClientID    *uuid.UUID `json:"client_id"`
	AssigneeID  uuid.UUID  `json:"assignee_id" validate:"uuid_required"`
	DueDate     string     `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
}

type taskService struct {
	taskRepo      repository.TaskRepository
	employeeRepo  repository.EmployeeRepository
	clientRepo    repository.ClientRepository
	notifications NotificationService
	now           func() time.Time
}

func NewTaskService(taskRepo repository.TaskRepository, employeeRepo repository.EmployeeRepository, clientRepo repository.ClientRepository, notifications NotificationService) TaskService {
	return &taskService{
		taskRepo:      taskRepo,
		employeeRepo:  employeeRepo,
		clientRepo:    clientRepo,
		notifications: notifications,
		now:           time.Now,
	}
}

// List returns every task to admins and only their own to everyone else.
func (s *taskService) List(actor model.Identity, filter repository.TaskFilter) ([]model.TaskResponse, error) {
	if !actor.IsAdmin() {
		filter.AssigneeID = &actor.ID
	}
	tasks, err := s.taskRepo.FindAll(filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]model.TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, tasks[i].ToResponse(now))
	}
	return out, nil
}

func (s *taskService) Create(actor model.Identity, req *CreateTaskRequest) (*model.TaskResponse, error) {
	// 1. Only admins assign work
	if err := authz.Require(&actor, authz.Admins...); err != nil {
		return nil, err
	}

	// 2. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}
	assignee, err := s.employeeRepo.FindByID(req.AssigneeID)
	if err != nil || !assignee.IsActive {
		return nil, invalid("Validation failed: assignee not found or inactive")
	}
	if req.ClientID != nil {
		if _, err := s.clientRepo.FindByID(*req.ClientID); err != nil {
			return nil, invalid("Validation failed: client not found")
		}
	}

	task := &model.Task{
		Title:       req.Title,
		Description: req.Description,
		ClientID:    req.ClientID,
		AssigneeID:  assignee.ID,
		CreatorID:   actor.ID,
		Priority:    model.TaskPriority(req.Priority),
		Status:      model.TaskPending,
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if req.DueDate != "" {
		due, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			return nil, invalid("Validation failed: due_date must be YYYY-MM-DD")
		}
		task.DueDate = &due
	}
	task.CreatedBy = actorID(actor.ID)
	task.UpdatedBy = actorID(actor.ID)

	// 3. Persist
	if err := s.taskRepo.Create(task); err != nil {
		return nil, err
	}
	task.Assignee = assignee

	// 4. Tell the assignee
	if assignee.ID != actor.ID {
		n := &model.Notification{
			RecipientID: assignee.ID,
			Title:       "New task assigned",
			Message:     fmt.Sprintf("%s assigned you: %s", actor.Name, task.Title),
			Kind:        model.NotifyTaskAssigned,
			Link:        "/tasks",
		}
		if err := s.notifications.Send(n); err != nil {
			log.Printf("task notify assignee task=%s: %v", task.ID, err)
		}
	}

	resp := task.ToResponse(s.now())
	return &resp, nil
}

func (s *taskService) UpdateStatus(actor model.Identity, id uuid.UUID, status model.TaskStatus) (*model.TaskResponse, error) {
	task, err := s.taskRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	if task.AssigneeID != actor.ID && !actor.IsAdmin() {
		return nil, authz.ErrForbidden
	}
	if !model.CanTransition(task.Status, status) {
		return nil, ErrInvalidTransition
	}

	var completedAt *time.Time
	if status == model.TaskCompleted {
		now := s.now()
		completedAt = &now
	}
	if err := s.taskRepo.UpdateStatus(id, status, completedAt, actorID(actor.ID)); err != nil {
		return nil, notFound(err)
	}
	task.Status = status
	task.CompletedAt = completedAt

	// The creator hears about progress made by someone else.
	if task.CreatorID != actor.ID {
		n := &model.Notification{
			RecipientID: task.CreatorID,
			Title:       "Task updated",
			Message:     fmt.Sprintf("%s moved \"%s\" to %s", actor.Name, task.Title, status),
			Kind:        model.NotifyTaskUpdated,
			Link:        "/tasks",
		}
		if err := s.notifications.Send(n); err != nil {
			log.Printf("task notify creator task=%s: %v", task.ID, err)
		}
	}

	resp := task.ToResponse(s.now())
	return &resp, nil
}
