package v1_test

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedFileExists(name string) bool {
	_, err := os.Stat(filepath.Join(uploadDir, name))
	return err == nil
}

func TestGetProfile(t *testing.T) {
	username := uniqueName("profuser")
	_, token := registerUser(t, username)

	resp := doJSON(t, "GET", "/profile/", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, username)
	assert.NotContains(t, body, `"password"`)
}

func TestUpdateProfile(t *testing.T) {
	username := uniqueName("profupd")
	_, token := registerUser(t, username)

	resp := doJSON(t, "PATCH", "/profile/", token, map[string]string{
		"first_name": "Ada",
		"last_name":  "Lovelace",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, "Ada", data["first_name"])
	assert.Equal(t, "Lovelace", data["last_name"])
	assert.Equal(t, "User", data["role"])

	// role is not part of the profile surface; sending it changes nothing
	resp = doJSON(t, "PATCH", "/profile/", token, map[string]string{"role": "Admin"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User", decodeBody(t, resp)["data"].(map[string]any)["role"])
}

func TestUpdateProfilePassword(t *testing.T) {
	username := uniqueName("pwupd")
	_, token := registerUser(t, username)

	resp := doJSON(t, "PATCH", "/profile/", token, map[string]string{"password": "newsecret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, "POST", "/auth/login", "", map[string]string{
		"username": username,
		"password": "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, "POST", "/auth/login", "", map[string]string{
		"username": username,
		"password": "newsecret",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// Re-submitting one's own email must not count as a conflict.
func TestUpdateProfileDuplicateChecksExcludeSelf(t *testing.T) {
	username := uniqueName("selfdup")
	_, token := registerUser(t, username)
	other := uniqueName("otherdup")
	registerUser(t, other)

	resp := doJSON(t, "PATCH", "/profile/", token, map[string]string{
		"email": username + "@example.com",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, "PATCH", "/profile/", token, map[string]string{
		"email": other + "@example.com",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email already in use", decodeBody(t, resp)["message"])
}

func TestProfilePictureLifecycle(t *testing.T) {
	id, token := registerUser(t, uniqueName("picuser"))

	// nothing uploaded yet
	resp := doJSON(t, "GET", fmt.Sprintf("/profile/picture/%d", id), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = uploadFile(t, "PATCH", "/profile/picture", token, "profile_picture", "me.png", "image/png", []byte("png-bytes-1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeBody(t, resp)["data"].(map[string]any)["profile_picture"].(string)
	assert.True(t, storedFileExists(first))

	resp = doJSON(t, "GET", fmt.Sprintf("/profile/picture/%d", id), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "png-bytes-1", readBody(t, resp))

	// replacing removes the previous file
	resp = uploadFile(t, "PATCH", "/profile/picture", token, "profile_picture", "me2.png", "image/png", []byte("png-bytes-2"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decodeBody(t, resp)["data"].(map[string]any)["profile_picture"].(string)
	assert.NotEqual(t, first, second)
	assert.True(t, storedFileExists(second))
	assert.False(t, storedFileExists(first))
}

// Only the owner can fetch their picture, even when it exists.
func TestProfilePictureOwnerOnly(t *testing.T) {
	ownerID, ownerToken := registerUser(t, uniqueName("picowner"))
	_, otherToken := registerUser(t, uniqueName("picother"))

	resp := uploadFile(t, "PATCH", "/profile/picture", ownerToken, "profile_picture", "mine.jpg", "image/jpeg", []byte("jpg"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, "GET", fmt.Sprintf("/profile/picture/%d", ownerID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestProfilePictureRejectsBadUploads(t *testing.T) {
	_, token := registerUser(t, uniqueName("badpic"))

	resp := uploadFile(t, "PATCH", "/profile/picture", token, "profile_picture", "script.sh", "text/x-sh", []byte("#!/bin/sh"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "File type not allowed", decodeBody(t, resp)["message"])
}
