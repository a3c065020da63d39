// Package handlers exposes the agent protocol and the operator API over
// gin. Handlers validate input, call the store, and translate store errors
// into the HTTP taxonomy; no business state lives here.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"employee-monitor/internal/models"
	"employee-monitor/internal/store"
)

// AgentHandler serves the four agent-facing endpoints. Every route behind
// it runs after APIKeyAuth, so the calling employee is always resolved.
type AgentHandler struct {
	Store     *store.Store
	UploadDir string

	logger *slog.Logger
}

func NewAgentHandler(st *store.Store, uploadDir string) *AgentHandler {
	return &AgentHandler{
		Store:     st,
		UploadDir: uploadDir,
		logger:    slog.With("component", "agent-api"),
	}
}

type activityInput struct {
	AppName         string `json:"app_name"`
	Status          string `json:"status"`
	DurationSeconds *int   `json:"duration_seconds"`
}

// LogActivity records one activity sample and moves the employee's
// presence snapshot. POST /api/log-activity
func (h *AgentHandler) LogActivity(c *gin.Context) {
	var input activityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if input.AppName == "" || input.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: app_name, status"})
		return
	}
	if !models.ValidReportStatus(input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be \"working\" or \"idle\""})
		return
	}

	duration := 0
	if input.DurationSeconds != nil {
		duration = *input.DurationSeconds
	}

	employee := currentEmployee(c)
	if _, err := h.Store.RecordActivity(employee.ID, input.AppName, input.Status, duration); err != nil {
		if errors.Is(err, store.ErrNegativeDuration) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "duration_seconds must not be negative"})
			return
		}
		h.logger.Error("failed to record activity", "employee_id", employee.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UploadScreenshot stores one image sample. The blob is written first,
// create-exclusive; if the record insert fails afterwards the orphaned
// blob is logged and left in place.
// POST /api/upload-screenshot, multipart field "screenshot"
func (h *AgentHandler) UploadScreenshot(c *gin.Context) {
	file, err := c.FormFile("screenshot")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No screenshot file provided"})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be an image"})
		return
	}

	employee := currentEmployee(c)
	relPath := screenshotPath(employee.EmployeeCode, file.Filename, time.Now().UTC())
	absPath := filepath.Join(h.UploadDir, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		h.logger.Error("failed to create screenshot directory", "path", absPath, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store screenshot"})
		return
	}
	if err := saveExclusive(file, absPath); err != nil {
		h.logger.Error("failed to write screenshot blob", "path", absPath, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store screenshot"})
		return
	}

	if _, err := h.Store.RecordScreenshot(employee.ID, relPath); err != nil {
		// The blob stays on disk; the record is what the dashboard reads.
		h.logger.Error("screenshot record insert failed, blob orphaned",
			"employee_id", employee.ID, "path", relPath, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store screenshot"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "path": relPath})
}

// screenshotPath builds the blob key: the employee's code plus a
// timestamp-derived segment with colons and dots replaced so it is
// path-safe, keeping the upload's extension (png when absent).
func screenshotPath(employeeCode, filename string, now time.Time) string {
	stamp := now.Format("2006-01-02T15:04:05.000000000Z07:00")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)

	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		ext = "png"
	}
	return employeeCode + "/" + stamp + "." + ext
}

// saveExclusive writes the upload to path, failing if the path already
// exists. The timestamp in the generated name is fine-grained enough that
// a collision means something is wrong, not that we should overwrite.
func saveExclusive(file *multipart.FileHeader, path string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

type submitInput struct {
	RequestType string `json:"request_type"`
}

// SubmitRequest starts a close/uninstall permission ask. Submission is
// idempotent while a request is outstanding: a duplicate submit returns
// the pending row's id instead of creating a second row.
// POST /api/agent-request
func (h *AgentHandler) SubmitRequest(c *gin.Context) {
	var input submitInput
	if err := c.ShouldBindJSON(&input); err != nil || !models.ValidRequestType(input.RequestType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request type. Must be \"close\" or \"uninstall\""})
		return
	}

	employee := currentEmployee(c)
	request, existing, err := h.Store.SubmitRequest(employee.ID, input.RequestType)
	if err != nil {
		h.logger.Error("failed to submit request", "employee_id", employee.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create request"})
		return
	}

	message := "Request submitted. Waiting for admin approval."
	if existing {
		message = "Request already pending"
	} else {
		h.logger.Info("agent request created",
			"request_type", input.RequestType, "employee", employee.Name)
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id": request.ID,
		"status":     models.RequestPending,
		"message":    message,
	})
}

// CheckPermission returns the current state of one of the caller's own
// requests. Someone else's request id is a 404, indistinguishable from an
// unknown id. GET /api/check-permission?request_id=...
func (h *AgentHandler) CheckPermission(c *gin.Context) {
	requestID := c.Query("request_id")
	if requestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing request_id parameter"})
		return
	}

	employee := currentEmployee(c)
	request, err := h.Store.GetOwnedRequest(employee.ID, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
			return
		}
		h.logger.Error("failed to look up request", "request_id", requestID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id":   request.ID,
		"status":       request.Status,
		"reason":       request.Reason,
		"responded_at": request.RespondedAt,
	})
}
