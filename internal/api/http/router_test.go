package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/api/dto"
	"github.com/spec-kit/user-directory/internal/api/http/handlers"
	"github.com/spec-kit/user-directory/internal/domain"
	"github.com/spec-kit/user-directory/internal/observability"
	"github.com/spec-kit/user-directory/internal/repository"
	"github.com/spec-kit/user-directory/internal/service"
	"github.com/spec-kit/user-directory/internal/storage"
)

type stubAttachments struct {
	uploads int
}

func (s *stubAttachments) Upload(_ context.Context, att *domain.Attachment) (storage.StoredObject, error) {
	s.uploads++
	key := fmt.Sprintf("profiles/%d-%s", s.uploads, att.FileName)
	return storage.StoredObject{Key: key, URL: "https://img.test/" + key}, nil
}

func (s *stubAttachments) Delete(context.Context, string) error { return nil }

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics("test")
	users := service.NewUserService(service.UserDependencies{
		UserRepo:    repository.NewInMemoryUserRepository(),
		Attachments: &stubAttachments{},
		Logger:      logger,
		Metrics:     metrics,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{})
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("userdir", "test", nil, nil),
		Users:   handlers.NewUsersHandler(users, logger),
		Metrics: metrics,
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func userPayload(email string) map[string]string {
	return map[string]string{
		"firstName": "Ana",
		"lastName":  "Lee",
		"email":     email,
		"mobile":    "555",
		"gender":    "Female",
		"location":  "NYC",
	}
}

func createUser(t *testing.T, app *fiber.App, email string) dto.UserResponse {
	t.Helper()
	status, body := doJSON(t, app, fiber.MethodPost, "/api/users", userPayload(email))
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var user dto.UserResponse
	require.NoError(t, json.Unmarshal(body, &user))
	return user
}

func TestCreateAndGetUser(t *testing.T) {
	app := newTestApp(t)

	created := createUser(t, app, "Ana@X.com")
	assert.Equal(t, "ana@x.com", created.Email)
	assert.Equal(t, "Active", created.Status)
	assert.NotEmpty(t, created.ID)

	status, body := doJSON(t, app, fiber.MethodGet, "/api/users/"+created.ID, nil)
	require.Equal(t, fiber.StatusOK, status)
	var envelope dto.UserEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.Equal(t, created.ID, envelope.Users.ID)
	assert.Equal(t, "Lee", envelope.Users.LastName)
}

func TestCreateMultipartWithProfile(t *testing.T) {
	app := newTestApp(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range userPayload("ana@x.com") {
		require.NoError(t, writer.WriteField(k, v))
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="profile"; filename="me.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n'})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/users", &buf)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var user dto.UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.Equal(t, "https://img.test/profiles/1-me.png", user.Profile)
	assert.Equal(t, "Ana", user.FirstName)
}

func TestCreateRejectsNonImageProfile(t *testing.T) {
	app := newTestApp(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range userPayload("ana@x.com") {
		require.NoError(t, writer.WriteField(k, v))
	}
	part, err := writer.CreateFormFile("profile", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("plain text, not an image"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/users", &buf)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateValidationAndConflict(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, fiber.MethodPost, "/api/users", map[string]string{"firstName": "Ana"})
	require.Equal(t, fiber.StatusBadRequest, status)
	var errBody dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errBody))
	assert.Equal(t, "VALIDATION_FAILED", errBody.Code)
	assert.Contains(t, errBody.Details, "email")

	createUser(t, app, "ana@x.com")
	status, body = doJSON(t, app, fiber.MethodPost, "/api/users", userPayload("ANA@x.com"))
	assert.Equal(t, fiber.StatusConflict, status)
	require.NoError(t, json.Unmarshal(body, &errBody))
	assert.Equal(t, "CONFLICT", errBody.Code)
	assert.NotEmpty(t, errBody.Message)
}

func TestListUsersPaging(t *testing.T) {
	app := newTestApp(t)
	for i := 0; i < 12; i++ {
		createUser(t, app, fmt.Sprintf("u%d@x.com", i))
	}

	status, body := doJSON(t, app, fiber.MethodGet, "/api/users?page=3", nil)
	require.Equal(t, fiber.StatusOK, status)
	var page dto.UserListResponse
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Len(t, page.Users, 2)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 3, page.CurrentPage)

	status, body = doJSON(t, app, fiber.MethodGet, "/api/users?page=abc", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 1, page.CurrentPage)
	assert.Len(t, page.Users, 5)

	_, body = doJSON(t, app, fiber.MethodGet, "/api/users?page=9", nil)
	assert.Contains(t, string(body), `"users":[]`)

	status, body = doJSON(t, app, fiber.MethodGet, "/api/users?page=3689348814741910324", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Empty(t, page.Users)
	assert.Equal(t, 3689348814741910324, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
}

func TestSearchAndExportRoutesBeatID(t *testing.T) {
	app := newTestApp(t)
	createUser(t, app, "ana@x.com")

	status, body := doJSON(t, app, fiber.MethodGet, "/api/users/search/lee", nil)
	require.Equal(t, fiber.StatusOK, status)
	var found []dto.UserResponse
	require.NoError(t, json.Unmarshal(body, &found))
	assert.Len(t, found, 1)

	status, body = doJSON(t, app, fiber.MethodGet, "/api/users/search/nobody", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "[]", string(body))

	req := httptest.NewRequest(fiber.MethodGet, "/api/users/export/csv", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, `attachment; filename="users.csv"`, resp.Header.Get(fiber.HeaderContentDisposition))
	csvBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvBody)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,firstName,lastName,email"))
}

func TestUpdateKeepsProfileWithoutFile(t *testing.T) {
	app := newTestApp(t)
	created := createUser(t, app, "ana@x.com")

	payload := userPayload("ana@x.com")
	payload["location"] = "Boston"
	payload["profile"] = "https://elsewhere/x.png"
	status, body := doJSON(t, app, fiber.MethodPut, "/api/users/"+created.ID, payload)
	require.Equal(t, fiber.StatusOK, status, string(body))

	var updated dto.UserResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Boston", updated.Location)
	assert.Empty(t, updated.Profile)
}

func TestDeleteThenGet(t *testing.T) {
	app := newTestApp(t)
	created := createUser(t, app, "ana@x.com")

	status, body := doJSON(t, app, fiber.MethodDelete, "/api/users/"+created.ID, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"message":"User deleted successfully"}`, string(body))

	status, _ = doJSON(t, app, fiber.MethodGet, "/api/users/"+created.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, fiber.MethodDelete, "/api/users/"+created.ID, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, fiber.MethodGet, "/api/users/not-a-uuid", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, fiber.MethodGet, "/api/health", nil)
	require.Equal(t, fiber.StatusOK, status)
	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health["status"])
	assert.NotEmpty(t, health["timestamp"])

	status, body = doJSON(t, app, fiber.MethodGet, "/api/health/ready", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), `"postgres":"disabled"`)

	status, body = doJSON(t, app, fiber.MethodGet, "/metrics", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), "test_http_requests_total")
}

func TestUnknownRouteReturnsJSONError(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, fiber.MethodGet, "/api/nothing", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	var errBody dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errBody))
	assert.Equal(t, "NOT_FOUND", errBody.Code)
}
