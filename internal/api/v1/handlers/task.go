package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskhub/internal/cache"
	"taskhub/internal/middleware"
	"taskhub/internal/models"
	"taskhub/internal/repository"
	"taskhub/internal/websocket"
	"taskhub/pkg/logger"
	"taskhub/pkg/storage"
)

type TaskHandler struct {
	tasks    *repository.TaskRepository
	cache    *cache.Cache
	store    *storage.Store
	hub      *websocket.Hub
	validate *validator.Validate
}

func NewTaskHandler(tasks *repository.TaskRepository, cache *cache.Cache, store *storage.Store, hub *websocket.Hub, validate *validator.Validate) *TaskHandler {
	return &TaskHandler{tasks: tasks, cache: cache, store: store, hub: hub, validate: validate}
}

// sortColumns whitelists the task list sort fields; camelCase aliases accept
// the request shapes older clients send.
var sortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"created_at": "created_at",
	"createdAt":  "created_at",
	"updated_at": "updated_at",
	"updatedAt":  "updated_at",
}

type CreateTaskRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description"`
}

func (h *TaskHandler) Create(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create task", zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := h.validate.Struct(req); err != nil {
		return respondValidation(c, err)
	}

	task := models.Task{
		UserID:      user.ID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.tasks.Create(c.Context(), &task); err != nil {
		logger.ErrorLogger.Error("Error creating task", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error creating task")
	}

	h.hub.Publish(websocket.EventTaskCreated, task.ID, user.ID)
	logger.AuditLogger.Info("Task created successfully", zap.Int("task_id", task.ID), zap.Int("user_id", user.ID))
	return respondData(c, fiber.StatusCreated, "Task created successfully", task)
}

func (h *TaskHandler) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	page, limit := parsePagination(c)

	sort, ok := sortColumns[c.Query("sort", "created_at")]
	if !ok {
		return respondError(c, fiber.StatusBadRequest, "Invalid sort field")
	}
	order := strings.ToLower(c.Query("order", "desc"))
	if order != "asc" && order != "desc" {
		return respondError(c, fiber.StatusBadRequest, "Invalid sort order")
	}

	tasks, total, err := h.tasks.List(c.Context(), repository.ListTasksParams{
		OwnerID: user.ID,
		Page:    page,
		Limit:   limit,
		Sort:    sort,
		Order:   order,
		Search:  c.Query("search"),
	})
	if err != nil {
		logger.ErrorLogger.Error("Error fetching tasks", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error fetching tasks")
	}

	pages := totalPages(total, limit)
	return c.JSON(fiber.Map{
		"message": "Tasks fetched successfully",
		"success": true,
		"status":  fiber.StatusOK,
		"data":    tasks,
		"meta": fiber.Map{
			"total":       total,
			"page":        page,
			"limit":       limit,
			"totalPages":  pages,
			"hasNext":     page < pages,
			"hasPrevious": page > 1,
		},
	})
}

// loadOwnedTask resolves :id and enforces ownership. A row that does not
// exist is a 404; a row owned by someone else is a 403 for non-admins. On a
// non-nil error the response has already been written.
func (h *TaskHandler) loadOwnedTask(c *fiber.Ctx) (models.Task, error) {
	user := middleware.CurrentUser(c)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		return models.Task{}, respondError(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	task, ok := h.cache.GetTask(c.Context(), taskID)
	if !ok {
		task, err = h.tasks.GetByID(c.Context(), taskID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return models.Task{}, respondError(c, fiber.StatusNotFound, "Task not found")
			}
			logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
			return models.Task{}, respondError(c, fiber.StatusInternalServerError, "Error fetching task")
		}
		h.cache.SetTask(c.Context(), task)
	}

	if user.Role != models.RoleAdmin && task.UserID != user.ID {
		logger.SecurityLogger.Warn("Task access denied",
			zap.Int("user_id", user.ID), zap.Int("task_id", taskID), zap.Int("owner_id", task.UserID))
		return models.Task{}, respondError(c, fiber.StatusForbidden, "Forbidden")
	}
	return task, nil
}

func (h *TaskHandler) Get(c *fiber.Ctx) error {
	task, err := h.loadOwnedTask(c)
	if err != nil {
		return err
	}
	return respondData(c, fiber.StatusOK, "Task found", task)
}

type UpdateTaskRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
}

func (h *TaskHandler) Update(c *fiber.Ctx) error {
	task, err := h.loadOwnedTask(c)
	if err != nil {
		return err
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update task", zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := h.validate.Struct(req); err != nil {
		return respondValidation(c, err)
	}

	if req.Name != nil {
		task.Name = *req.Name
	}
	if req.Description != nil {
		task.Description = req.Description
	}

	if err := h.tasks.Update(c.Context(), &task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "Task not found")
		}
		logger.ErrorLogger.Error("Error updating task", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error updating task")
	}

	h.cache.DropTask(c.Context(), task.ID)
	h.cache.SetTask(c.Context(), task)

	h.hub.Publish(websocket.EventTaskUpdated, task.ID, task.UserID)
	logger.AuditLogger.Info("Task updated", zap.Int("task_id", task.ID))
	return respondData(c, fiber.StatusOK, "Task updated successfully", task)
}

func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	task, err := h.loadOwnedTask(c)
	if err != nil {
		return err
	}

	if err := h.tasks.Delete(c.Context(), task.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "Task not found")
		}
		logger.ErrorLogger.Error("Error deleting task", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error deleting task")
	}

	if task.Attachment != nil {
		if err := h.store.Remove(*task.Attachment); err != nil {
			logger.ErrorLogger.Error("Error removing attachment file", zap.Error(err))
		}
	}
	h.cache.DropTask(c.Context(), task.ID)

	h.hub.Publish(websocket.EventTaskDeleted, task.ID, task.UserID)
	logger.AuditLogger.Info("Task deleted", zap.Int("task_id", task.ID))
	return respondMessage(c, fiber.StatusOK, "Task deleted successfully")
}
