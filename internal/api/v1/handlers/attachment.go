package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskhub/internal/repository"
	"taskhub/internal/websocket"
	"taskhub/pkg/logger"
)

// AddAttachment uploads a task attachment. An existing attachment is
// replaced; the old file is deleted best-effort after the database write.
func (h *TaskHandler) AddAttachment(c *fiber.Ctx) error {
	task, err := h.loadOwnedTask(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("attachment")
	if err != nil {
		logger.ErrorLogger.Error("Error reading uploaded file", zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, "Error uploading file")
	}
	if err := validateUpload(file); err != nil {
		return respondError(c, fiber.StatusBadRequest, err.Error())
	}

	name, err := h.store.Save(file)
	if err != nil {
		logger.ErrorLogger.Error("Error saving file", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error saving file")
	}

	if err := h.tasks.UpdateAttachment(c.Context(), task.ID, &name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "Task not found")
		}
		logger.ErrorLogger.Error("Error updating attachment", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error updating attachment")
	}

	if task.Attachment != nil {
		if err := h.store.Remove(*task.Attachment); err != nil {
			logger.ErrorLogger.Error("Error removing previous attachment", zap.Error(err))
		}
	}
	h.cache.DropTask(c.Context(), task.ID)

	h.hub.Publish(websocket.EventTaskUpdated, task.ID, task.UserID)
	logger.AuditLogger.Info("Attachment uploaded", zap.Int("task_id", task.ID), zap.String("filename", name))
	return respondData(c, fiber.StatusOK, "Attachment uploaded successfully", fiber.Map{
		"attachment": name,
		"size":       file.Size,
	})
}

func (h *TaskHandler) GetAttachment(c *fiber.Ctx) error {
	task, err := h.loadOwnedTask(c)
	if err != nil {
		return err
	}
	if task.Attachment == nil {
		return respondError(c, fiber.StatusNotFound, "Attachment not found")
	}
	return c.SendFile(h.store.Path(*task.Attachment))
}

func (h *TaskHandler) RemoveAttachment(c *fiber.Ctx) error {
	task, err := h.loadOwnedTask(c)
	if err != nil {
		return err
	}
	if task.Attachment == nil {
		return respondError(c, fiber.StatusNotFound, "Attachment not found")
	}

	if err := h.tasks.UpdateAttachment(c.Context(), task.ID, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "Task not found")
		}
		logger.ErrorLogger.Error("Error removing attachment", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error removing attachment")
	}

	if err := h.store.Remove(*task.Attachment); err != nil {
		logger.ErrorLogger.Error("Error removing attachment file", zap.Error(err))
	}
	h.cache.DropTask(c.Context(), task.ID)

	h.hub.Publish(websocket.EventTaskUpdated, task.ID, task.UserID)
	logger.AuditLogger.Info("Attachment removed", zap.Int("task_id", task.ID))
	return respondMessage(c, fiber.StatusOK, "Attachment removed successfully")
}
