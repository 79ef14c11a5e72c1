package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"taskhub/internal/models"
	"taskhub/internal/repository"
	"taskhub/pkg/logger"
)

// AccountLoader resolves the account a verified token refers to.
type AccountLoader interface {
	GetByID(ctx context.Context, id int) (models.User, error)
}

const localsUserKey = "currentUser"

// CurrentUser returns the account RequireAuth attached to the request.
func CurrentUser(c *fiber.Ctx) models.User {
	return c.Locals(localsUserKey).(models.User)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"success": false,
		"status":  fiber.StatusUnauthorized,
	})
}

// RequireAuth verifies the bearer token, loads the referenced account and
// stores it in the request locals. Anything wrong with the token is a 401.
func RequireAuth(secret []byte, users AccountLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "No token provided")
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return unauthorized(c, "Invalid token format")
		}
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return unauthorized(c, "Token expired")
			}
			return unauthorized(c, "Invalid token")
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, "Invalid token claims")
		}
		sub, ok := claims["sub"].(float64)
		if !ok {
			return unauthorized(c, "Invalid user ID in token")
		}

		user, err := users.GetByID(c.Context(), int(sub))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				logger.SecurityLogger.Warn("Token references missing account", zap.Int("user_id", int(sub)))
				return unauthorized(c, "Invalid token")
			}
			logger.ErrorLogger.Error("Error loading account for token", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Error loading account",
				"success": false,
				"status":  fiber.StatusInternalServerError,
			})
		}

		c.Locals(localsUserKey, user)
		return c.Next()
	}
}

// RequireRoles allows the request through only when the authenticated
// account's role is in the allow-list. An empty allow-list passes
// unconditionally. Runs after RequireAuth.
func RequireRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(roles) == 0 {
			return c.Next()
		}
		user := CurrentUser(c)
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		logger.SecurityLogger.Warn("Forbidden",
			zap.String("role", string(user.Role)),
			zap.Int("user_id", user.ID),
			zap.String("path", c.Path()),
		)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Forbidden",
			"success": false,
			"status":  fiber.StatusForbidden,
		})
	}
}
