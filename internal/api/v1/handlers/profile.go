package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskhub/internal/cache"
	"taskhub/internal/middleware"
	"taskhub/internal/repository"
	"taskhub/pkg/logger"
	"taskhub/pkg/storage"
)

// ProfileHandler serves the caller's own account: same shape as the admin
// update but pinned to the authenticated id, and never the role.
type ProfileHandler struct {
	users    *repository.UserRepository
	cache    *cache.Cache
	store    *storage.Store
	validate *validator.Validate
}

func NewProfileHandler(users *repository.UserRepository, cache *cache.Cache, store *storage.Store, validate *validator.Validate) *ProfileHandler {
	return &ProfileHandler{users: users, cache: cache, store: store, validate: validate}
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	return respondData(c, fiber.StatusOK, "Profile found", user)
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update profile", zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := h.validate.Struct(req); err != nil {
		return respondValidation(c, err)
	}

	if err := applyAccountUpdate(c, h.users, &user, req); err != nil {
		return err
	}

	h.cache.DropUser(c.Context(), user.ID)
	h.cache.SetUser(c.Context(), user)

	logger.AuditLogger.Info("Profile updated", zap.Int("user_id", user.ID))
	return respondData(c, fiber.StatusOK, "Profile updated successfully", user)
}

// UpdatePicture stores the new picture under a unique name and deletes the
// previous file. The old-file delete is best-effort: a failure is logged and
// never fails the request.
func (h *ProfileHandler) UpdatePicture(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	file, err := c.FormFile("profile_picture")
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

	if err := h.users.UpdatePicture(c.Context(), user.ID, &name); err != nil {
		logger.ErrorLogger.Error("Error updating profile picture", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error updating profile picture")
	}

	if user.ProfilePicture != nil {
		if err := h.store.Remove(*user.ProfilePicture); err != nil {
			logger.ErrorLogger.Error("Error removing previous picture", zap.Error(err))
		}
	}
	h.cache.DropUser(c.Context(), user.ID)

	logger.AuditLogger.Info("Profile picture uploaded", zap.Int("user_id", user.ID), zap.String("filename", name))
	return respondData(c, fiber.StatusOK, "Profile picture uploaded successfully", fiber.Map{
		"profile_picture": name,
	})
}

// GetPicture streams a profile picture. Only the owner may fetch their own:
// an id mismatch is forbidden, which is distinct from the picture (or the
// account) being absent.
func (h *ProfileHandler) GetPicture(c *fiber.Ctx) error {
	requester := middleware.CurrentUser(c)

	ownerID, err := c.ParamsInt("id")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid user ID")
	}
	if requester.ID != ownerID {
		logger.SecurityLogger.Warn("Picture access denied",
			zap.Int("requester_id", requester.ID), zap.Int("owner_id", ownerID))
		return respondError(c, fiber.StatusForbidden, "Forbidden")
	}

	owner, err := h.users.GetByID(c.Context(), ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "User not found")
		}
		logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error fetching user")
	}
	if owner.ProfilePicture == nil {
		return respondError(c, fiber.StatusNotFound, "Profile picture not found")
	}

	return c.SendFile(h.store.Path(*owner.ProfilePicture))
}
