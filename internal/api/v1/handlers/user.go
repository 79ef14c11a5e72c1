package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/cache"
	"taskhub/internal/models"
	"taskhub/internal/repository"
	"taskhub/pkg/logger"
	"taskhub/pkg/storage"
)

// UserHandler serves the admin-only account administration endpoints. The
// role gate lives in the route table; these handlers assume it already ran.
type UserHandler struct {
	users    *repository.UserRepository
	tasks    *repository.TaskRepository
	cache    *cache.Cache
	store    *storage.Store
	validate *validator.Validate
}

func NewUserHandler(users *repository.UserRepository, tasks *repository.TaskRepository, cache *cache.Cache, store *storage.Store, validate *validator.Validate) *UserHandler {
	return &UserHandler{users: users, tasks: tasks, cache: cache, store: store, validate: validate}
}

type CreateUserRequest struct {
	RegisterRequest
	Role string `json:"role" validate:"required"`
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create user", zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := h.validate.Struct(req); err != nil {
		return respondValidation(c, err)
	}
	if req.Email == nil && req.PhoneNumber == nil {
		return respondError(c, fiber.StatusBadRequest, "Email or phone number is required")
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, "Invalid role")
	}

	user, err := createAccount(c, h.users, req.RegisterRequest, role)
	if err != nil {
		return err
	}

	logger.AuditLogger.Info("User created by admin", zap.Int("user_id", user.ID), zap.String("role", string(role)))
	return respondData(c, fiber.StatusCreated, "User created successfully", user)
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	page, limit := parsePagination(c)
	roleFilter := c.Query("role")
	if roleFilter != "" {
		if _, ok := models.ParseRole(roleFilter); !ok {
			return respondError(c, fiber.StatusBadRequest, "Invalid role")
		}
	}

	users, total, err := h.users.List(c.Context(), repository.ListUsersParams{
		Page:     page,
		Limit:    limit,
		Username: c.Query("username"),
		Email:    c.Query("email"),
		Role:     roleFilter,
	})
	if err != nil {
		logger.ErrorLogger.Error("Error fetching users", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error fetching users")
	}

	return c.JSON(fiber.Map{
		"message": "Users fetched successfully",
		"success": true,
		"status":  fiber.StatusOK,
		"data":    users,
		"meta": fiber.Map{
			"total":      total,
			"page":       page,
			"limit":      limit,
			"totalPages": totalPages(total, limit),
		},
	})
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	targetID, err := c.ParamsInt("id")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	if user, ok := h.cache.GetUser(c.Context(), targetID); ok {
		return respondData(c, fiber.StatusOK, "User found", user)
	}

	user, err := h.users.GetByID(c.Context(), targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "User not found")
		}
		logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error fetching user")
	}
	h.cache.SetUser(c.Context(), user)

	return respondData(c, fiber.StatusOK, "User found", user)
}

type UpdateUserRequest struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,min=6,max=32"`
	Username    *string `json:"username" validate:"omitempty,excludesall=@?"`
	Password    *string `json:"password" validate:"omitempty,min=6"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
}

// applyAccountUpdate is the shared update path for admin updates and the
// self-service profile. Duplicate checks exclude the target's own row; the
// unique constraints still back them up. A non-nil return means the response
// has been written.
func applyAccountUpdate(c *fiber.Ctx, users *repository.UserRepository, target *models.User, req UpdateUserRequest) error {
	if req.Username != nil || req.Email != nil || req.PhoneNumber != nil {
		username := target.Username
		if req.Username != nil {
			username = *req.Username
		}
		email := target.Email
		if req.Email != nil {
			email = req.Email
		}
		phone := target.PhoneNumber
		if req.PhoneNumber != nil {
			phone = req.PhoneNumber
		}
		field, err := users.FindConflict(c.Context(), username, email, phone, target.ID)
		if err != nil {
			logger.ErrorLogger.Error("Error checking duplicates", zap.Error(err))
			return respondError(c, fiber.StatusInternalServerError, "Error updating user")
		}
		if field != "" {
			return respondError(c, fiber.StatusBadRequest, field+" already in use")
		}
		target.Username = username
		target.Email = email
		target.PhoneNumber = phone
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
			return respondError(c, fiber.StatusInternalServerError, "Error hashing password")
		}
		target.Password = string(hashed)
	}
	if req.FirstName != nil {
		target.FirstName = req.FirstName
	}
	if req.LastName != nil {
		target.LastName = req.LastName
	}

	if err := users.Update(c.Context(), target); err != nil {
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return respondError(c, fiber.StatusBadRequest, dup.Error())
		}
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "User not found")
		}
		logger.ErrorLogger.Error("Error updating user", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error updating user")
	}
	return nil
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	targetID, err := c.ParamsInt("id")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update user", zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := h.validate.Struct(req); err != nil {
		return respondValidation(c, err)
	}

	target, err := h.users.GetByID(c.Context(), targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "User not found")
		}
		logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error fetching user")
	}

	if err := applyAccountUpdate(c, h.users, &target, req); err != nil {
		return err
	}

	h.cache.DropUser(c.Context(), targetID)
	h.cache.SetUser(c.Context(), target)

	logger.AuditLogger.Info("User updated successfully", zap.Int("user_id", targetID))
	return respondData(c, fiber.StatusOK, "User updated successfully", target)
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *UserHandler) UpdateRole(c *fiber.Ctx) error {
	targetID, err := c.ParamsInt("id")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := h.validate.Struct(req); err != nil {
		return respondValidation(c, err)
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, "Invalid role")
	}

	if err := h.users.UpdateRole(c.Context(), targetID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "User not found")
		}
		logger.ErrorLogger.Error("Error updating role", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error updating role")
	}

	h.cache.DropUser(c.Context(), targetID)

	logger.AuditLogger.Info("Role updated", zap.Int("user_id", targetID), zap.String("role", string(role)))
	return respondMessage(c, fiber.StatusOK, "Role updated successfully")
}

// Delete removes an account. Its tasks go with it via the cascade; the
// account's picture and the tasks' attachment files are removed best-effort
// after the database commit.
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	targetID, err := c.ParamsInt("id")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	target, err := h.users.GetByID(c.Context(), targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "User not found")
		}
		logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error fetching user")
	}

	owned, err := h.tasks.OwnedByUser(c.Context(), targetID)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching owned tasks", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error deleting user")
	}

	if err := h.users.Delete(c.Context(), targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "User not found")
		}
		logger.ErrorLogger.Error("Error deleting user", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error deleting user")
	}

	if target.ProfilePicture != nil {
		if err := h.store.Remove(*target.ProfilePicture); err != nil {
			logger.ErrorLogger.Error("Error removing profile picture file", zap.Error(err))
		}
	}
	for _, t := range owned {
		h.cache.DropTask(c.Context(), t.ID)
		if t.Attachment != nil {
			if err := h.store.Remove(*t.Attachment); err != nil {
				logger.ErrorLogger.Error("Error removing attachment file", zap.Error(err))
			}
		}
	}
	h.cache.DropUser(c.Context(), targetID)

	logger.AuditLogger.Info("User deleted successfully", zap.Int("user_id", targetID))
	return respondMessage(c, fiber.StatusOK, "User deleted successfully")
}
