package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/middleware"
	"taskhub/internal/models"
	"taskhub/internal/repository"
	"taskhub/pkg/logger"
)

var testSecret = []byte("middleware-test-secret")

type stubLoader struct {
	user models.User
	err  error
}

func (s stubLoader) GetByID(ctx context.Context, id int) (models.User, error) {
	if s.err != nil {
		return models.User{}, s.err
	}
	return s.user, nil
}

func init() {
	logger.InitLoggers()
}

func signTestToken(t *testing.T, id int, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      id,
		"username": "someone",
		"role":     "User",
		"exp":      time.Now().Add(expiresIn).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func newAuthApp(loader middleware.AccountLoader, roles ...models.Role) *fiber.App {
	app := fiber.New()
	app.Get("/protected",
		middleware.RequireAuth(testSecret, loader),
		middleware.RequireRoles(roles...),
		func(c *fiber.Ctx) error {
			return c.SendString(middleware.CurrentUser(c).Username)
		})
	return app
}

func get(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestRequireAuthRejectsBadTokens(t *testing.T) {
	app := newAuthApp(stubLoader{user: models.User{ID: 1, Username: "alice", Role: models.RoleUser}})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"no bearer payload", "Bearer"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + signTestToken(t, 1, -time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := get(t, app, tc.header)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

func TestRequireAuthRejectsWrongSecret(t *testing.T) {
	app := newAuthApp(stubLoader{user: models.User{ID: 1, Role: models.RoleUser}})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 1, "exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	resp := get(t, app, "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRequireAuthLoadsAccount(t *testing.T) {
	app := newAuthApp(stubLoader{user: models.User{ID: 7, Username: "bob", Role: models.RoleUser}})

	resp := get(t, app, "Bearer "+signTestToken(t, 7, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	assert.Equal(t, "bob", string(buf[:n]))
}

// A token for an account that no longer exists is just an invalid token.
func TestRequireAuthMissingAccount(t *testing.T) {
	app := newAuthApp(stubLoader{err: repository.ErrNotFound})

	resp := get(t, app, "Bearer "+signTestToken(t, 42, time.Hour))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRequireRolesAllowList(t *testing.T) {
	token := "Bearer " + signTestToken(t, 1, time.Hour)

	// empty allow-list passes unconditionally
	app := newAuthApp(stubLoader{user: models.User{ID: 1, Username: "carol", Role: models.RoleUser}})
	resp := get(t, app, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// role not in the list is forbidden, not unauthenticated
	app = newAuthApp(stubLoader{user: models.User{ID: 1, Role: models.RoleUser}}, models.RoleAdmin)
	resp = get(t, app, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	app = newAuthApp(stubLoader{user: models.User{ID: 1, Username: "root", Role: models.RoleAdmin}}, models.RoleAdmin)
	resp = get(t, app, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
