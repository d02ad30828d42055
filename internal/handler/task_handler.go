package handler

import (
	"time"

	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"
	"go-brokerage-crm/internal/service"

	"github.com/gofiber/fiber/v2"
)

type TaskHandler struct {
	taskService service.TaskService
}

func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// GetTasks lists tasks. Admins may filter by assignee; everyone else gets
// their own tasks.
// GET /api/tasks?assignee_id=&client_id=&status=&due_before=
func (h *TaskHandler) GetTasks(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	assignee, err := queryUUID(c, "assignee_id")
	if err != nil {
		return fromError(c, err)
	}
	client, err := queryUUID(c, "client_id")
	if err != nil {
		return fromError(c, err)
	}
	filter := repository.TaskFilter{
		AssigneeID: assignee,
		ClientID:   client,
		Status:     model.TaskStatus(c.Query("status")),
	}
	if c.Query("due_before") != "" {
		due, err := queryDate(c, "due_before", time.Time{})
		if err != nil {
			return fromError(c, err)
		}
		filter.DueBefore = &due
	}

	tasks, err := h.taskService.List(me, filter)
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, tasks)
}

// CreateTask assigns a new task
// POST /api/tasks
func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	var req service.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	task, err := h.taskService.Create(me, &req)
	if err != nil {
		return fromError(c, err)
	}
	return created(c, task)
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status"`
}

// UpdateTaskStatus moves a task through its workflow
// PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateTaskStatus(c *fiber.Ctx) error {
	me, err := actor(c)
	if err != nil {
		return fromError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return fromError(c, err)
	}
	var req UpdateTaskStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	status := model.TaskStatus(req.Status)
	switch status {
	case model.TaskPending, model.TaskInProgress, model.TaskCompleted, model.TaskCancelled:
	default:
		return fail(c, fiber.StatusBadRequest, "status must be one of PENDING, IN_PROGRESS, COMPLETED, CANCELLED")
	}

	task, err := h.taskService.UpdateStatus(me, id, status)
	if err != nil {
		return fromError(c, err)
	}
	return ok(c, task)
}
