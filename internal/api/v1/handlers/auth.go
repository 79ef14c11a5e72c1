package handlers

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/models"
	"taskhub/internal/repository"
	"taskhub/pkg/logger"
)

type AuthHandler struct {
	users    *repository.UserRepository
	validate *validator.Validate
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthHandler(users *repository.UserRepository, validate *validator.Validate, secret []byte, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{users: users, validate: validate, secret: secret, tokenTTL: tokenTTL}
}

// signToken issues the session token: subject id, username and role, with a
// server-side expiration.
func signToken(user models.User, secret []byte, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

type RegisterRequest struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,min=6,max=32"`
	Username    string  `json:"username" validate:"required,excludesall=@?"`
	Password    string  `json:"password" validate:"required,min=6"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in register", zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, "Bad request")
	}

	if err := h.validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during register", zap.Error(err))
		return respondValidation(c, err)
	}
	if req.Email == nil && req.PhoneNumber == nil {
		return respondError(c, fiber.StatusBadRequest, "Email or phone number is required")
	}

	user, err := createAccount(c, h.users, req, models.RoleUser)
	if err != nil {
		return err // already rendered
	}

	token, err := signToken(user, h.secret, h.tokenTTL)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error generating token")
	}

	logger.AuditLogger.Info("User registered successfully", zap.Int("user_id", user.ID))
	return respondData(c, fiber.StatusCreated, "User created successfully", fiber.Map{
		"user":  user,
		"token": token,
	})
}

// createAccount runs the shared registration path: combined uniqueness
// lookup, bcrypt hash, insert. The unique constraints remain the final
// arbiter; a concurrent duplicate surfaces as the same "already in use"
// message. On failure the response has already been written.
func createAccount(c *fiber.Ctx, users *repository.UserRepository, req RegisterRequest, role models.Role) (models.User, error) {
	field, err := users.FindConflict(c.Context(), req.Username, req.Email, req.PhoneNumber, 0)
	if err != nil {
		logger.ErrorLogger.Error("Error checking duplicates", zap.Error(err))
		return models.User{}, respondError(c, fiber.StatusInternalServerError, "Error creating user")
	}
	if field != "" {
		logger.SecurityLogger.Warn("Duplicate registration field", zap.String("field", field), zap.String("username", req.Username))
		return models.User{}, respondError(c, fiber.StatusBadRequest, field+" already in use")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
		return models.User{}, respondError(c, fiber.StatusInternalServerError, "Error hashing password")
	}

	user := models.User{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Username:    req.Username,
		Password:    string(hashed),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        role,
	}
	if err := users.Create(c.Context(), &user); err != nil {
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			logger.SecurityLogger.Warn("Duplicate on insert", zap.String("field", dup.Field))
			return models.User{}, respondError(c, fiber.StatusBadRequest, dup.Error())
		}
		logger.ErrorLogger.Error("Error creating user", zap.Error(err))
		return models.User{}, respondError(c, fiber.StatusInternalServerError, "Error creating user")
	}
	return user, nil
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in login", zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, "Bad request")
	}

	if err := h.validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during login", zap.Error(err))
		return respondValidation(c, err)
	}

	// Unknown username and wrong password answer identically.
	user, err := h.users.GetByUsername(c.Context(), req.Username)
	if err != nil {
		logger.SecurityLogger.Warn("Login for unknown username", zap.String("username", req.Username))
		return respondError(c, fiber.StatusUnauthorized, "Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.SecurityLogger.Warn("Invalid password", zap.String("username", req.Username))
		return respondError(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	token, err := signToken(user, h.secret, h.tokenTTL)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Error generating token")
	}

	logger.AuditLogger.Info("Login success", zap.Int("user_id", user.ID), zap.String("role", string(user.Role)))
	return respondData(c, fiber.StatusOK, "Login success", fiber.Map{
		"user":  user,
		"token": token,
	})
}
