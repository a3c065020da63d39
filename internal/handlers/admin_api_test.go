package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"employee-monitor/internal/handlers"
	"employee-monitor/internal/models"
)

func TestAdminCreateAndListEmployees(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/admin/employees", "", map[string]any{
		"name":        "Alice",
		"device_name": "LAPTOP-01",
	})
	require.Equal(t, http.StatusOK, w.Code)

	created := decode(t, w)["employee"].(map[string]any)
	assert.NotEmpty(t, created["api_key"])
	assert.NotEmpty(t, created["employee_code"])
	assert.Equal(t, models.StatusOffline, created["status"])

	w = env.do(t, http.MethodPost, "/api/admin/employees", "", map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/employees", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	employees := decode(t, w)["employees"].([]any)
	assert.Len(t, employees, 1)
}

func TestAdminUpdateEmployee(t *testing.T) {
	env := newTestEnv(t)
	employee := env.createEmployee(t, "Alice")

	w := env.do(t, http.MethodPatch, "/api/admin/employees/"+employee.ID, "", map[string]any{
		"name":   "Alice B",
		"status": "offline",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode(t, w)["employee"].(map[string]any)
	assert.Equal(t, "Alice B", updated["name"])

	w = env.do(t, http.MethodPatch, "/api/admin/employees/"+employee.ID, "", map[string]any{
		"status": "away",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, "/api/admin/employees/no-such-id", "", map[string]any{
		"name": "Ghost",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRotateKey(t *testing.T) {
	env := newTestEnv(t)
	employee := env.createEmployee(t, "Alice")

	w := env.do(t, http.MethodPost, "/api/admin/employees/"+employee.ID+"/rotate-key", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rotated := decode(t, w)["employee"].(map[string]any)
	assert.NotEqual(t, employee.APIKey, rotated["api_key"])

	// Old credential no longer authenticates the agent API.
	resp := env.do(t, http.MethodPost, "/api/log-activity", employee.APIKey, map[string]any{
		"app_name": "X", "status": "working",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAdminRespondLifecycle(t *testing.T) {
	env := newTestEnv(t)
	employee := env.createEmployee(t, "Alice")

	request, _, err := env.st.SubmitRequest(employee.ID, models.RequestUninstall)
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/api/admin/requests/"+request.ID+"/respond", "", map[string]any{
		"status": "denied",
		"reason": "device is company property",
	})
	require.Equal(t, http.StatusOK, w.Code)
	responded := decode(t, w)["request"].(map[string]any)
	assert.Equal(t, "denied", responded["status"])
	assert.Equal(t, "device is company property", responded["reason"])

	// Terminal rows cannot be re-decided.
	w = env.do(t, http.MethodPost, "/api/admin/requests/"+request.ID+"/respond", "", map[string]any{
		"status": "approved",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/admin/requests/no-such-id/respond", "", map[string]any{
		"status": "approved",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/admin/requests/"+request.ID+"/respond", "", map[string]any{
		"status": "maybe",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminListRequestsFilter(t *testing.T) {
	env := newTestEnv(t)
	employee := env.createEmployee(t, "Alice")

	pending, _, err := env.st.SubmitRequest(employee.ID, models.RequestClose)
	require.NoError(t, err)
	resolved, _, err := env.st.SubmitRequest(employee.ID, models.RequestUninstall)
	require.NoError(t, err)
	_, err = env.st.RespondRequest(resolved.ID, models.RequestApproved, nil)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/admin/requests?status=pending", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	requests := decode(t, w)["requests"].([]any)
	require.Len(t, requests, 1)
	assert.Equal(t, pending.ID, requests[0].(map[string]any)["id"])
}

func TestAdminStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	employee := env.createEmployee(t, "Alice")

	_, err := env.st.RecordActivity(employee.ID, "Editor", models.ReportWorking, 60)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/admin/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)
	assert.Equal(t, float64(1), stats["total_employees"])
	assert.Equal(t, float64(1), stats["online_employees"])
	assert.Equal(t, float64(60), stats["working_seconds"])
}

func TestAdminAuthToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/guarded", handlers.AdminAuth("secret"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
