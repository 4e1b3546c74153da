package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"taskmanager/internal/api/v1/handlers"
	"taskmanager/internal/auth"
	"taskmanager/internal/repository"
	"taskmanager/internal/service"
	"taskmanager/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func createTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store, err := repository.NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	validate := validation.New()
	authSvc := auth.NewService(store, auth.NewTokenService("test-secret", time.Hour), auth.NewHasher(bcrypt.MinCost), validate)
	h := handlers.New(authSvc, service.NewTaskService(store, validate), "file")
	return NewApp(h, Options{ClientURL: "http://localhost:3001"})
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out), "%s %s", method, path)
	return resp.StatusCode, out
}

func register(t *testing.T, app *fiber.App, name string) string {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthAndUnknownRoute(t *testing.T) {
	app := createTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "file", body["database"])

	status, body = doJSON(t, app, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Route not found", body["message"])
}

func TestAuthFlow(t *testing.T) {
	app := createTestApp(t)
	token := register(t, app, "alice")

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "bob",
		"email":    "not-an-email",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, body["errors"])

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "passwordHash")

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", body["message"])

	status, body = doJSON(t, app, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice@example.com", body["user"].(map[string]any)["email"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTaskLifecycle(t *testing.T) {
	app := createTestApp(t)
	alice := register(t, app, "alice")
	bob := register(t, app, "bob")

	status, body := doJSON(t, app, http.MethodPost, "/api/tasks", alice, map[string]string{
		"title":       "Ship report",
		"description": "Annual report due",
		"deadline":    "2025-01-10",
		"priority":    "high",
	})
	require.Equal(t, http.StatusCreated, status, body)
	created := body["data"].(map[string]any)
	id := created["id"].(string)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "high", created["priority"])

	status, body = doJSON(t, app, http.MethodPut, "/api/tasks/"+id, alice, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, status, body)
	updated := body["data"].(map[string]any)
	assert.Equal(t, "completed", updated["status"])
	assert.Equal(t, "Ship report", updated["title"])
	assert.NotEqual(t, created["updatedAt"], updated["updatedAt"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/tasks/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = doJSON(t, app, http.MethodDelete, "/api/tasks/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/tasks?search=REPORT", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = doJSON(t, app, http.MethodGet, "/api/tasks", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["count"])

	status, body = doJSON(t, app, http.MethodPut, "/api/tasks/"+id, alice, map[string]string{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])

	status, body = doJSON(t, app, http.MethodDelete, "/api/tasks/"+id, alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Task deleted successfully", body["message"])

	status, body = doJSON(t, app, http.MethodGet, "/api/tasks/"+id, alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Task not found", body["message"])
}

func TestListTasksQuery(t *testing.T) {
	app := createTestApp(t)
	token := register(t, app, "alice")

	for i, p := range []string{"low", "high", "medium"} {
		status, body := doJSON(t, app, http.MethodPost, "/api/tasks", token, map[string]string{
			"title":    fmt.Sprintf("task %d", i),
			"deadline": fmt.Sprintf("2025-01-%02d", 10-i),
			"priority": p,
		})
		require.Equal(t, http.StatusCreated, status, body)
	}

	status, body := doJSON(t, app, http.MethodGet, "/api/tasks?sortBy=priority&sortOrder=asc", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	var priorities []string
	for _, item := range body["data"].([]any) {
		priorities = append(priorities, item.(map[string]any)["priority"].(string))
	}
	assert.Equal(t, []string{"high", "medium", "low"}, priorities)

	status, body = doJSON(t, app, http.MethodGet, "/api/tasks?priority=high&status=pending", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/tasks?sortBy=title", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTasksRequireAuth(t *testing.T) {
	app := createTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/tasks", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMalformedBody(t *testing.T) {
	app := createTestApp(t)
	token := register(t, app, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
