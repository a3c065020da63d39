package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"employee-monitor/internal/notify"
	"employee-monitor/internal/store"
)

// AdminHandler serves the operator-facing API: roster management, record
// browsing, permission decisions, and the live-event feed the dashboard
// subscribes to.
type AdminHandler struct {
	Store *store.Store
	Hub   *notify.Hub

	logger *slog.Logger
}

func NewAdminHandler(st *store.Store, hub *notify.Hub) *AdminHandler {
	return &AdminHandler{
		Store:  st,
		Hub:    hub,
		logger: slog.With("component", "admin-api"),
	}
}

type createEmployeeInput struct {
	Name       string  `json:"name"`
	DeviceName *string `json:"device_name"`
}

// CreateEmployee registers a tracked endpoint and returns it including the
// generated employee code and API key. POST /api/admin/employees
func (h *AdminHandler) CreateEmployee(c *gin.Context) {
	var input createEmployeeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	employee, err := h.Store.CreateEmployee(input.Name, input.DeviceName)
	if err != nil {
		if errors.Is(err, store.ErrEmptyName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
			return
		}
		h.logger.Error("failed to create employee", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create employee"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "employee": employee})
}

// ListEmployees returns the roster. GET /api/admin/employees
func (h *AdminHandler) ListEmployees(c *gin.Context) {
	employees, err := h.Store.ListEmployees()
	if err != nil {
		h.logger.Error("failed to list employees", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list employees"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": employees})
}

// GetEmployee returns one roster entry. GET /api/admin/employees/:id
func (h *AdminHandler) GetEmployee(c *gin.Context) {
	employee, err := h.Store.GetEmployee(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Employee not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"employee": employee})
}

type updateEmployeeInput struct {
	Name       *string `json:"name"`
	DeviceName *string `json:"device_name"`
	Status     *string `json:"status"`
}

// UpdateEmployee applies an operator edit: rename, relabel the device, or
// explicitly override presence status. PATCH /api/admin/employees/:id
func (h *AdminHandler) UpdateEmployee(c *gin.Context) {
	var input updateEmployeeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	employee, err := h.Store.UpdateEmployee(c.Param("id"), store.EmployeeUpdate{
		Name:       input.Name,
		DeviceName: input.DeviceName,
		Status:     input.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Employee not found"})
		case errors.Is(err, store.ErrEmptyName), errors.Is(err, store.ErrInvalidPresenceStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid employee fields"})
		default:
			h.logger.Error("failed to update employee", "employee_id", c.Param("id"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update employee"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "employee": employee})
}

// RotateAPIKey issues a fresh credential for one employee; the old key
// stops working immediately. POST /api/admin/employees/:id/rotate-key
func (h *AdminHandler) RotateAPIKey(c *gin.Context) {
	employee, err := h.Store.RotateAPIKey(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Employee not found"})
			return
		}
		h.logger.Error("failed to rotate api key", "employee_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rotate API key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "employee": employee})
}

// ListActivity returns activity samples, filterable by employee_id and
// date (YYYY-MM-DD). GET /api/admin/activity
func (h *AdminHandler) ListActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))

	logs, err := h.Store.ListActivity(c.Query("employee_id"), c.Query("date"), limit)
	if err != nil {
		h.logger.Error("failed to list activity", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list activity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity_logs": logs})
}

// ListScreenshots returns screenshot records, filterable by employee_id.
// GET /api/admin/screenshots
func (h *AdminHandler) ListScreenshots(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	shots, err := h.Store.ListScreenshots(c.Query("employee_id"), limit)
	if err != nil {
		h.logger.Error("failed to list screenshots", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list screenshots"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"screenshots": shots})
}

// ListRequests returns permission requests, filterable by status.
// GET /api/admin/requests
func (h *AdminHandler) ListRequests(c *gin.Context) {
	requests, err := h.Store.ListRequests(c.Query("status"))
	if err != nil {
		h.logger.Error("failed to list requests", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

type respondInput struct {
	Status string  `json:"status"`
	Reason *string `json:"reason"`
}

// RespondRequest records the operator's decision on a pending permission
// request. A request that already left pending is a 409, never a silent
// overwrite. POST /api/admin/requests/:id/respond
func (h *AdminHandler) RespondRequest(c *gin.Context) {
	var input respondInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	request, err := h.Store.RespondRequest(c.Param("id"), input.Status, input.Reason)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidDecision):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be \"approved\" or \"denied\""})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		case errors.Is(err, store.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Request has already been responded to"})
		default:
			h.logger.Error("failed to respond to request", "request_id", c.Param("id"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to respond to request"})
		}
		return
	}

	h.logger.Info("agent request resolved",
		"request_id", request.ID, "status", request.Status)
	c.JSON(http.StatusOK, gin.H{"success": true, "request": request})
}

// Stats returns the dashboard summary counters. GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.Store.Stats()
	if err != nil {
		h.logger.Error("failed to compute stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Events streams record-change events as server-sent events; the dashboard
// refetches the affected table on each one. GET /api/admin/events
func (h *AdminHandler) Events(c *gin.Context) {
	events, cancel := h.Hub.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("change", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
