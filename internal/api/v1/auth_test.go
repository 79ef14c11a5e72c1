package v1_test

import (
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/repository"
)

func TestRegisterAndLoginRoundtrip(t *testing.T) {
	username := uniqueName("rtuser")
	id, _ := registerUser(t, username)

	resp := doJSON(t, "POST", "/auth/login", "", map[string]string{
		"username": username,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	data := result["data"].(map[string]any)

	token, err := jwt.Parse(data["token"].(string), func(token *jwt.Token) (interface{}, error) {
		return testSecret, nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(id), claims["sub"])
	assert.Equal(t, username, claims["username"])
	assert.Equal(t, "User", claims["role"])
}

func TestRegisterRequiresEmailOrPhone(t *testing.T) {
	resp := doJSON(t, "POST", "/auth/register", "", map[string]string{
		"username": uniqueName("nocontact"),
		"password": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, "Email or phone number is required", result["message"])
}

func TestRegisterWithPhoneOnly(t *testing.T) {
	resp := doJSON(t, "POST", "/auth/register", "", map[string]string{
		"username":     uniqueName("phoneonly"),
		"phone_number": uniqueName("+4915"),
		"password":     "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRegisterDuplicateFields(t *testing.T) {
	username := uniqueName("dupuser")
	phone := uniqueName("+4916")
	resp := doJSON(t, "POST", "/auth/register", "", map[string]string{
		"username":     username,
		"email":        username + "@example.com",
		"phone_number": phone,
		"password":     "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	cases := []struct {
		name string
		body map[string]string
		want string
	}{
		{"username", map[string]string{
			"username": username,
			"email":    uniqueName("other") + "@example.com",
			"password": "secret123",
		}, "Username already in use"},
		{"email", map[string]string{
			"username": uniqueName("other"),
			"email":    username + "@example.com",
			"password": "secret123",
		}, "Email already in use"},
		{"phone", map[string]string{
			"username":     uniqueName("other"),
			"phone_number": phone,
			"password":     "secret123",
		}, "Phone number already in use"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, "POST", "/auth/register", "", tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			result := decodeBody(t, resp)
			assert.Equal(t, tc.want, result["message"])
		})
	}
}

func TestRegisterValidationErrorsArray(t *testing.T) {
	resp := doJSON(t, "POST", "/auth/register", "", map[string]string{
		"email":    "not-an-email",
		"password": "shrt",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	result := decodeBody(t, resp)
	errs, ok := result["errors"].([]any)
	require.True(t, ok, "expected errors array, got %v", result["errors"])
	assert.Contains(t, errs, "Username is required")
	assert.Contains(t, errs, "Email must be a valid email address")
	assert.Contains(t, errs, "Password must be at least 6 characters")
}

// Unknown username and wrong password must be indistinguishable.
func TestLoginInvalidCredentials(t *testing.T) {
	username := uniqueName("loginuser")
	registerUser(t, username)

	for _, body := range []map[string]string{
		{"username": uniqueName("nosuchuser"), "password": "secret123"},
		{"username": username, "password": "wrongpass"},
	} {
		resp := doJSON(t, "POST", "/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		result := decodeBody(t, resp)
		assert.Equal(t, "Invalid credentials", result["message"])
	}
}

// The password hash must never appear in any response body.
func TestPasswordNeverSerialized(t *testing.T) {
	username := uniqueName("nopw")
	resp := doJSON(t, "POST", "/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := readBody(t, resp)
	assert.NotContains(t, body, `"password"`)
	assert.NotContains(t, body, "secret123")

	resp = doJSON(t, "POST", "/auth/login", "", map[string]string{
		"username": username,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, readBody(t, resp), `"password"`)
}

// Registration only ever creates User accounts; a deployment's first Admin
// comes from the startup seed.
func TestSeededAdminBootstrap(t *testing.T) {
	username := uniqueName("seedadmin")
	require.NoError(t, repository.SeedAdminUser(testDB, username, username+"@example.com", "bootstrap1"))
	// re-seeding the same username keeps the original credentials
	require.NoError(t, repository.SeedAdminUser(testDB, username, username+"@example.com", "otherpass"))

	resp := doJSON(t, "POST", "/auth/login", "", map[string]string{
		"username": username,
		"password": "bootstrap1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	data := result["data"].(map[string]any)
	user := data["user"].(map[string]any)
	assert.Equal(t, "Admin", user["role"])

	resp = doJSON(t, "GET", "/users/", data["token"].(string), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
