package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkravets/famhub/internal/middleware"
	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/service"
)

// TaskHandler exposes task creation, listing and completion.
type TaskHandler struct {
	Tasks *service.TaskService
}

func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{Tasks: tasks}
}

type createTaskReq struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        *time.Time `json:"due_date"`
	Priority       string     `json:"priority"`
	Recurring      bool       `json:"recurring"`
	RecurrenceRule string     `json:"recurrence_rule"`
}

type taskPart struct {
	ID              uint64     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	Recurring       bool       `json:"recurring"`
	RecurrenceRule  string     `json:"recurrence_rule,omitempty"`
	RecurringTaskID *uint64    `json:"recurring_task_id,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toTaskPart(t model.Task) taskPart {
	return taskPart{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		DueDate:         t.DueDate,
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		Recurring:       t.Recurring,
		RecurrenceRule:  t.RecurrenceRule,
		RecurringTaskID: t.RecurringTaskID,
		CompletedAt:     t.CompletedAt,
		CreatedAt:       t.CreatedAt,
	}
}

// Create adds a one-off task or a recurring template to the family.
func (h *TaskHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createTaskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	task, err := h.Tasks.Create(c.Request().Context(), pathID(c, "id"), uid, model.Task{
		Title:          req.Title,
		Description:    req.Description,
		DueDate:        req.DueDate,
		Priority:       model.TaskPriority(req.Priority),
		Recurring:      req.Recurring,
		RecurrenceRule: req.RecurrenceRule,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toTaskPart(task))
}

// List returns the family's tasks, templates included.
func (h *TaskHandler) List(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tasks, err := h.Tasks.List(c.Request().Context(), pathID(c, "id"), uid)
	if err != nil {
		return serviceError(c, err)
	}
	parts := make([]taskPart, 0, len(tasks))
	for _, t := range tasks {
		parts = append(parts, toTaskPart(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"tasks": parts})
}

// Complete marks a task done.
func (h *TaskHandler) Complete(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	task, err := h.Tasks.Complete(c.Request().Context(), pathID(c, "taskId"), uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toTaskPart(task))
}
