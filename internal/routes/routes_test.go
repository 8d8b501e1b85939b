package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskline/taskline-backend/internal/config"
	"github.com/taskline/taskline-backend/internal/database"
	"github.com/taskline/taskline-backend/internal/dto"
	"github.com/taskline/taskline-backend/internal/handlers"
	"github.com/taskline/taskline-backend/internal/models"
	"github.com/taskline/taskline-backend/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Task{},
		&models.TaskNode{},
	))

	// Health checks ping through the package-level handle.
	database.DB = db

	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 168 * time.Hour,
	}

	authService := services.NewAuthService(db, cfg)
	taskService := services.NewTaskService(db)

	app := fiber.New()
	Setup(app, cfg,
		handlers.NewAuthHandler(authService),
		handlers.NewHealthHandler(),
		handlers.NewTaskHandler(taskService),
	)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
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
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, payload
}

func registerUser(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	resp, payload := doJSON(t, app, fiber.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
		Email:    email,
		Password: "secret123",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(payload))

	var auth dto.AuthResponse
	require.NoError(t, json.Unmarshal(payload, &auth))
	return auth.AccessToken
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, payload := doJSON(t, app, fiber.MethodGet, "/api/health", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health dto.HealthResponse
	require.NoError(t, json.Unmarshal(payload, &health))
	assert.Equal(t, "ok", health.Status)
}

func TestTaskRoutesRequireAuth(t *testing.T) {
	app := setupTestApp(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{fiber.MethodGet, "/api/tasks"},
		{fiber.MethodPost, "/api/tasks"},
		{fiber.MethodPost, "/api/tasks/complete"},
		{fiber.MethodPatch, "/api/nodes"},
		{fiber.MethodDelete, "/api/nodes"},
		{fiber.MethodPost, "/api/nodes"},
	} {
		resp, _ := doJSON(t, app, tc.method, tc.path, "", nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	app := setupTestApp(t)
	token := registerUser(t, app, "flow@example.com")

	// Empty name is rejected.
	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/tasks", token, dto.CreateTaskRequest{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Create a task; it arrives with one incomplete node at order 0.
	resp, payload := doJSON(t, app, fiber.MethodPost, "/api/tasks", token, dto.CreateTaskRequest{Name: "Ship feature"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(payload))

	var task dto.TaskResponse
	require.NoError(t, json.Unmarshal(payload, &task))
	require.Len(t, task.Nodes, 1)
	assert.Equal(t, 0, task.Nodes[0].Order)
	assert.False(t, task.Nodes[0].IsCompleted)

	// Insert after the default node.
	resp, payload = doJSON(t, app, fiber.MethodPost, "/api/nodes", token, dto.InsertNodeRequest{
		TaskID:      task.ID,
		AfterNodeID: task.Nodes[0].ID,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(payload))

	var inserted dto.NodeResponse
	require.NoError(t, json.Unmarshal(payload, &inserted))
	assert.Equal(t, 1, inserted.Order)

	// Patch the new node's description and note.
	desc := "Deploy to staging"
	note := "after the 14:00 freeze"
	resp, _ = doJSON(t, app, fiber.MethodPatch, "/api/nodes", token, dto.UpdateNodeRequest{
		NodeID:      inserted.ID,
		Description: &desc,
		Note:        &note,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Missing node id on patch is a 400.
	resp, _ = doJSON(t, app, fiber.MethodPatch, "/api/nodes", token, fiber.Map{"description": "x"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Complete the whole task.
	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/tasks/complete", token, dto.CompleteTaskRequest{TaskID: task.ID})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Listing shows both nodes completed, in order.
	resp, payload = doJSON(t, app, fiber.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var tasks []dto.TaskResponse
	require.NoError(t, json.Unmarshal(payload, &tasks))
	require.Len(t, tasks, 1)
	require.Len(t, tasks[0].Nodes, 2)
	for _, n := range tasks[0].Nodes {
		assert.True(t, n.IsCompleted)
		assert.NotNil(t, n.CompletedAt)
	}
	assert.Equal(t, desc, tasks[0].Nodes[1].Description)

	// Delete one node, then the last one is protected.
	resp, _ = doJSON(t, app, fiber.MethodDelete, "/api/nodes?nodeId="+inserted.ID, token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, payload = doJSON(t, app, fiber.MethodDelete, "/api/nodes?nodeId="+task.Nodes[0].ID, token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(payload), "at least one node")
}

func TestForeignTaskLooksUnauthorized(t *testing.T) {
	app := setupTestApp(t)
	ownerToken := registerUser(t, app, "owner@example.com")
	intruderToken := registerUser(t, app, "intruder@example.com")

	resp, payload := doJSON(t, app, fiber.MethodPost, "/api/tasks", ownerToken, dto.CreateTaskRequest{Name: "Private"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var task dto.TaskResponse
	require.NoError(t, json.Unmarshal(payload, &task))

	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/tasks/complete", intruderToken, dto.CompleteTaskRequest{TaskID: task.ID})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Intruder never learns whether the node exists.
	resp, _ = doJSON(t, app, fiber.MethodDelete, "/api/nodes?nodeId="+task.Nodes[0].ID, intruderToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
