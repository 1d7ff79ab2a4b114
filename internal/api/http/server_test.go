package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicdesk/complaints-service/internal/bootstrap"
	"github.com/civicdesk/complaints-service/internal/config"
	"github.com/civicdesk/complaints-service/internal/service"
)

const password = "Str0ng!Pass"

type testServer struct {
	t   *testing.T
	app *fiber.App
	c   *bootstrap.Container
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{
		App:     config.AppConfig{Name: "complaints-service", Version: "test", RequestTimeoutSeconds: 5, CORSOrigins: "*"},
		Storage: config.StorageConfig{Driver: config.StorageMemory},
		Auth:    config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 15, BcryptCost: 4, LoginPerMinute: 60, LoginBurst: 10},
		Upload: config.UploadConfig{
			Driver:       config.BlobLocal,
			Dir:          t.TempDir(),
			MaxBytes:     4 << 10,
			MaxFiles:     2,
			AllowedTypes: config.DefaultAllowedTypes,
		},
	}
	container, err := bootstrap.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close(context.Background()) })

	app := NewServer(cfg, Services{
		Auth:         container.Auth,
		Admin:        container.Admin,
		Complaints:   container.Complaints,
		Assignment:   container.Assignment,
		Attachments:  container.Attachments,
		Locations:    container.Locations,
		Metrics:      container.Metrics,
		Logger:       zap.NewNop(),
		Dependencies: container.HealthDependencies(),
	})
	return &testServer{t: t, app: app, c: container}
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination struct {
		Page     int `json:"page"`
		PageSize int `json:"page_size"`
		Total    int `json:"total"`
	} `json:"pagination"`
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(req *http.Request) (int, envelope, []byte) {
	s.t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)

	var env envelope
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(s.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env, raw
}

func (s *testServer) json(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	status, env, _ := s.do(req)
	return status, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (s *testServer) register(email string) string {
	s.t.Helper()
	status, env := s.json(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":        email,
		"password":     password,
		"full_name":    "Mukamana Grace",
		"national_id":  "1199080012345678",
		"phone_number": "0788123456",
	})
	require.Equal(s.t, http.StatusCreated, status, env.Error.Message)
	out := decode[struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}](s.t, env)
	return out.Auth.Token
}

func (s *testServer) login(email string) string {
	s.t.Helper()
	status, env := s.json(http.MethodPost, "/api/auth/login", "", map[string]any{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, status, env.Error.Message)
	out := decode[struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}](s.t, env)
	return out.Auth.Token
}

func (s *testServer) superuser() string {
	s.t.Helper()
	_, _, err := s.c.Admin.CreateSuperuser(context.Background(), service.UserInput{
		Email:       "root@example.rw",
		Password:    password,
		FullName:    "Root Admin",
		NationalID:  "1199080012345670",
		PhoneNumber: "0780000000",
	})
	require.NoError(s.t, err)
	return s.login("root@example.rw")
}

func complaintBody() map[string]any {
	return map[string]any{
		"title":       "Broken water pipe",
		"description": "Water has been leaking on the main road for three days now.",
		"category":    "water",
		"province":    "kigali",
		"district":    "gasabo",
		"sector":      "Kacyiru",
		"priority":    4,
	}
}

type complaintView struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	AgencyID     *string  `json:"agency_id"`
	NextStatuses []string `json:"next_statuses"`
	ResolvedAt   *string  `json:"resolved_at"`
	Attachments  []struct {
		Handle      string `json:"handle"`
		ContentType string `json:"content_type"`
		URL         string `json:"url"`
	} `json:"attachments"`
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, _, raw := s.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "alive")

	status, _, raw = s.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, status, string(raw))

	status, _, raw = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "http_requests_total")
}

func TestUnknownRouteAndMissingToken(t *testing.T) {
	s := newTestServer(t)

	status, env := s.json(http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, env = s.json(http.MethodGet, "/api/complaints", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)

	status, env = s.json(http.MethodGet, "/api/complaints", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)
}

func TestRegisterValidationEnvelope(t *testing.T) {
	s := newTestServer(t)
	status, env := s.json(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":        "grace@example.rw",
		"password":     password,
		"full_name":    "Mukamana Grace",
		"national_id":  "119908001234567",
		"phone_number": "0788123456",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	fields, ok := env.Error.Details["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "national_id")
	assert.Len(t, fields, 1)
}

func TestTokenFormLogin(t *testing.T) {
	s := newTestServer(t)
	s.register("grace@example.rw")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader("username=grace%40example.rw&password="+password))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	status, _, raw := s.do(req)
	require.Equal(t, http.StatusOK, status, string(raw))

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.NotEmpty(t, body.AccessToken)
	assert.Equal(t, "bearer", body.TokenType)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.register("grace@example.rw")

	status, env := s.json(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	me := decode[struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}](t, env)
	assert.Equal(t, "grace@example.rw", me.Email)
	assert.Equal(t, "citizen", me.Role)

	status, _ = s.json(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, env = s.json(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)
}

func TestComplaintLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	root := s.superuser()
	citizen := s.register("grace@example.rw")
	other := s.register("eric@example.rw")

	status, env := s.json(http.MethodPost, "/api/complaints", citizen, complaintBody())
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	created := decode[complaintView](t, env)
	assert.Equal(t, "submitted", created.Status)
	assert.Empty(t, created.NextStatuses, "citizens cannot move complaints")

	status, env = s.json(http.MethodGet, "/api/complaints/"+created.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = s.json(http.MethodGet, "/api/complaints", other, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, env.Pagination.Total)

	// agency admin account and agency
	status, env = s.json(http.MethodPost, "/api/admin/users", root, map[string]any{
		"email":        "wasac@example.rw",
		"password":     password,
		"full_name":    "WASAC Desk",
		"national_id":  "1199080012345671",
		"phone_number": "0722000000",
		"role":         "agency_admin",
	})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	agencyAdminUser := decode[struct {
		ID string `json:"id"`
	}](t, env)

	status, env = s.json(http.MethodPost, "/api/admin/agencies", root, map[string]any{
		"name":       "WASAC",
		"admin_id":   agencyAdminUser.ID,
		"categories": []string{"water"},
	})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	agency := decode[struct {
		ID string `json:"id"`
	}](t, env)
	agencyAdmin := s.login("wasac@example.rw")

	status, env = s.json(http.MethodGet, "/api/complaints", agencyAdmin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, env.Pagination.Total, "unassigned complaints are invisible to agencies")

	status, env = s.json(http.MethodPut, "/api/complaints/"+created.ID, root, map[string]any{
		"agency_id": agency.ID,
		"status":    "in_review",
		"note":      "routed to WASAC",
	})
	require.Equal(t, http.StatusOK, status, env.Error.Message)
	updated := decode[complaintView](t, env)
	assert.Equal(t, "in_review", updated.Status)
	require.NotNil(t, updated.AgencyID)
	assert.Equal(t, agency.ID, *updated.AgencyID)

	status, env = s.json(http.MethodGet, "/api/complaints", agencyAdmin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, env.Pagination.Total)

	status, env = s.json(http.MethodPut, "/api/complaints/"+created.ID+"/status", agencyAdmin, map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ILLEGAL_TRANSITION", env.Error.Code)

	status, env = s.json(http.MethodPut, "/api/complaints/"+created.ID+"/status", citizen, map[string]any{"status": "in_progress"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	for _, next := range []string{"in_progress", "responded", "resolved"} {
		status, env = s.json(http.MethodPut, "/api/complaints/"+created.ID+"/status", agencyAdmin, map[string]any{"status": next})
		require.Equal(t, http.StatusOK, status, env.Error.Message)
	}
	resolved := decode[complaintView](t, env)
	assert.Equal(t, "resolved", resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	status, env = s.json(http.MethodPost, "/api/complaints/"+created.ID+"/responses", agencyAdmin, map[string]any{"message": "The pipe was replaced."})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	status, env = s.json(http.MethodGet, "/api/complaints/"+created.ID+"/responses", citizen, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, env), 1)

	status, env = s.json(http.MethodGet, "/api/complaints/"+created.ID+"/history", citizen, nil)
	require.Equal(t, http.StatusOK, status)
	history := decode[[]struct {
		ChangeType string `json:"change_type"`
		NewValue   string `json:"new_value"`
	}](t, env)
	require.Len(t, history, 6)
	assert.Equal(t, "created", history[0].ChangeType)
	assert.Equal(t, "agency_assignment", history[1].ChangeType)
	assert.Equal(t, "resolved", history[5].NewValue)

	status, env = s.json(http.MethodGet, "/api/complaints?status=resolved,closed&page_size=5", root, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, env.Pagination.Total)
	assert.Equal(t, 5, env.Pagination.PageSize)

	status, env = s.json(http.MethodGet, "/api/complaints?status=lost", root, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestAdminRoutesRequireSystemAdmin(t *testing.T) {
	s := newTestServer(t)
	citizen := s.register("grace@example.rw")

	status, env := s.json(http.MethodGet, "/api/admin/users", citizen, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = s.json(http.MethodGet, "/api/agencies", citizen, nil)
	assert.Equal(t, http.StatusOK, status)

	root := s.superuser()
	status, env = s.json(http.MethodGet, "/api/admin/users?role=citizen", root, nil)
	require.Equal(t, http.StatusOK, status)
	users := decode[[]struct {
		NationalID string `json:"national_id"`
	}](t, env)
	require.Len(t, users, 1)
	assert.NotEqual(t, "1199080012345678", users[0].NationalID, "national ids are masked in listings")
}

func TestMetaCatalogues(t *testing.T) {
	s := newTestServer(t)

	status, env := s.json(http.MethodGet, "/api/meta/categories", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decode[[]map[string]any](t, env))

	status, env = s.json(http.MethodGet, "/api/meta/locations", "", nil)
	require.Equal(t, http.StatusOK, status)
	provinces := decode[[]struct {
		ID string `json:"id"`
	}](t, env)
	assert.NotEmpty(t, provinces)
}

func TestMultipartComplaintWithAttachment(t *testing.T) {
	s := newTestServer(t)
	citizen := s.register("grace@example.rw")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for key, value := range complaintBody() {
		require.NoError(t, form.WriteField(key, fmt.Sprint(value)))
	}
	part, err := form.CreateFormFile("attachments", "leak.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("photo unavailable, water everywhere"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/complaints", &body)
	req.Header.Set(fiber.HeaderContentType, form.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+citizen)
	status, env, raw := s.do(req)
	require.Equal(t, http.StatusCreated, status, string(raw))

	created := decode[complaintView](t, env)
	require.Len(t, created.Attachments, 1)
	assert.True(t, strings.HasPrefix(created.Attachments[0].ContentType, "text/plain"))

	req = httptest.NewRequest(http.MethodGet, created.Attachments[0].URL, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+citizen)
	status, _, raw = s.do(req)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "photo unavailable, water everywhere", string(raw))

	req = httptest.NewRequest(http.MethodGet, "/api/complaints/"+created.ID+"/attachments/complaints/"+created.ID+"/missing.txt", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+citizen)
	status, env, _ = s.do(req)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func (s *testServer) agency(root, name, adminEmail string) string {
	s.t.Helper()
	status, env := s.json(http.MethodPost, "/api/admin/users", root, map[string]any{
		"email":        adminEmail,
		"password":     password,
		"full_name":    name + " Desk",
		"national_id":  "1199080012345671",
		"phone_number": "0722000000",
		"role":         "agency_admin",
	})
	require.Equal(s.t, http.StatusCreated, status, env.Error.Message)
	admin := decode[struct {
		ID string `json:"id"`
	}](s.t, env)

	status, env = s.json(http.MethodPost, "/api/admin/agencies", root, map[string]any{
		"name":       name,
		"admin_id":   admin.ID,
		"categories": []string{"water"},
	})
	require.Equal(s.t, http.StatusCreated, status, env.Error.Message)
	return decode[struct {
		ID string `json:"id"`
	}](s.t, env).ID
}

func TestRejectedCombinedUpdateLeavesComplaintUntouched(t *testing.T) {
	s := newTestServer(t)
	root := s.superuser()
	citizen := s.register("grace@example.rw")
	agencyID := s.agency(root, "WASAC", "wasac@example.rw")

	status, env := s.json(http.MethodPost, "/api/complaints", citizen, complaintBody())
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	created := decode[complaintView](t, env)

	status, env = s.json(http.MethodPut, "/api/complaints/"+created.ID, root, map[string]any{
		"agency_id": agencyID,
		"status":    "resolved",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ILLEGAL_TRANSITION", env.Error.Code)

	status, env = s.json(http.MethodPut, "/api/complaints/"+created.ID, root, map[string]any{
		"agency_id": agencyID,
		"status":    "lost",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	status, env = s.json(http.MethodGet, "/api/complaints/"+created.ID, root, nil)
	require.Equal(t, http.StatusOK, status)
	current := decode[complaintView](t, env)
	assert.Equal(t, "submitted", current.Status)
	assert.Nil(t, current.AgencyID)

	status, env = s.json(http.MethodGet, "/api/complaints/"+created.ID+"/history", root, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, env), 1)
}

func TestRepeatedStatusQueryValues(t *testing.T) {
	s := newTestServer(t)
	root := s.superuser()
	citizen := s.register("grace@example.rw")

	var ids []string
	for range 2 {
		status, env := s.json(http.MethodPost, "/api/complaints", citizen, complaintBody())
		require.Equal(t, http.StatusCreated, status, env.Error.Message)
		ids = append(ids, decode[complaintView](t, env).ID)
	}
	status, env := s.json(http.MethodPut, "/api/complaints/"+ids[0]+"/status", root, map[string]any{"status": "rejected"})
	require.Equal(t, http.StatusOK, status, env.Error.Message)

	status, env = s.json(http.MethodGet, "/api/complaints?status=submitted&status=rejected", root, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, env.Pagination.Total)

	status, env = s.json(http.MethodGet, "/api/complaints?status=rejected", root, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, env.Pagination.Total)
}
