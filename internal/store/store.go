// Package store owns every read and write against the record store. The
// protocol handlers hold no durable state of their own: each call reads
// current state, decides, writes, and returns. All multi-step writes run
// inside a transaction so the change-notification fan-out only ever sees
// consistent records.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"employee-monitor/internal/models"
	"employee-monitor/internal/notify"
)

type Store struct {
	db       *gorm.DB
	notifier notify.Notifier
	logger   *slog.Logger
}

func New(db *gorm.DB, notifier notify.Notifier) *Store {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Store{
		db:       db,
		notifier: notifier,
		logger:   slog.With("component", "store"),
	}
}

// AutoMigrate creates or updates the four relations.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.Employee{},
		&models.ActivityLog{},
		&models.Screenshot{},
		&models.AgentRequest{},
	)
}

func (s *Store) publish(table, action, id string) {
	s.notifier.Publish(notify.Event{
		Table:  table,
		Action: action,
		ID:     id,
		At:     time.Now().UTC(),
	})
}

// ResolveAPIKey maps an opaque bearer key to the employee holding it.
// An empty key is rejected before any lookup.
func (s *Store) ResolveAPIKey(apiKey string) (*models.Employee, error) {
	if apiKey == "" {
		return nil, ErrUnauthorized
	}

	var employee models.Employee
	err := s.db.Where("api_key = ?", apiKey).First(&employee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

// RecordActivity appends one activity sample and moves the employee's
// presence: a "working" report maps to online, an "idle" report to idle.
// Both writes commit together or not at all. Retried calls overwrite the
// presence snapshot harmlessly but do append a duplicate log row; the
// protocol provides no dedupe key.
func (s *Store) RecordActivity(employeeID, appName, reportStatus string, durationSeconds int) (*models.ActivityLog, error) {
	if appName == "" {
		return nil, ErrEmptyAppName
	}
	if !models.ValidReportStatus(reportStatus) {
		return nil, ErrInvalidReportStatus
	}
	if durationSeconds < 0 {
		return nil, ErrNegativeDuration
	}

	presence := models.StatusOnline
	if reportStatus == models.ReportIdle {
		presence = models.StatusIdle
	}

	entry := models.ActivityLog{
		ID:              uuid.NewString(),
		EmployeeID:      employeeID,
		AppName:         appName,
		Status:          reportStatus,
		DurationSeconds: durationSeconds,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		result := tx.Model(&models.Employee{}).Where("id = ?", employeeID).Updates(map[string]any{
			"status":      presence,
			"current_app": appName,
			"last_seen":   time.Now().UTC(),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("activity_logs", "insert", entry.ID)
	s.publish("employees", "update", employeeID)
	return &entry, nil
}

// RecordScreenshot appends a screenshot row referencing an already-written
// blob and touches last_seen. Presence status and current_app are left
// untouched.
func (s *Store) RecordScreenshot(employeeID, imagePath string) (*models.Screenshot, error) {
	shot := models.Screenshot{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		ImagePath:  imagePath,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&shot).Error; err != nil {
			return err
		}
		return tx.Model(&models.Employee{}).Where("id = ?", employeeID).
			Update("last_seen", time.Now().UTC()).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish("screenshots", "insert", shot.ID)
	s.publish("employees", "update", employeeID)
	return &shot, nil
}

// SubmitRequest starts (or re-finds) a permission ask. While a pending row
// exists for the (employee, type) pair the same row is returned, so a
// retried or duplicate submit never creates a second pending ask. The
// check and insert run in one transaction; sqlite serializes writers, so
// two concurrent submits cannot both observe "no pending row".
//
// The returned bool is true when an existing pending row was reused.
func (s *Store) SubmitRequest(employeeID, requestType string) (*models.AgentRequest, bool, error) {
	if !models.ValidRequestType(requestType) {
		return nil, false, ErrInvalidRequestType
	}

	var request models.AgentRequest
	existing := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("employee_id = ? AND request_type = ? AND status = ?",
			employeeID, requestType, models.RequestPending).First(&request).Error
		if err == nil {
			existing = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		request = models.AgentRequest{
			ID:          uuid.NewString(),
			EmployeeID:  employeeID,
			RequestType: requestType,
			Status:      models.RequestPending,
		}
		return tx.Create(&request).Error
	})
	if err != nil {
		return nil, false, err
	}

	if !existing {
		s.publish("agent_requests", "insert", request.ID)
	}
	return &request, existing, nil
}

// GetOwnedRequest fetches a request by id, scoped to the calling employee.
// A request belonging to someone else is a plain not-found, so request ids
// cannot be probed across employees.
func (s *Store) GetOwnedRequest(employeeID, requestID string) (*models.AgentRequest, error) {
	var request models.AgentRequest
	err := s.db.Where("id = ? AND employee_id = ?", requestID, employeeID).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// RespondRequest applies an operator decision. The update is conditioned
// on the row still being pending: a second response hits zero rows and
// comes back as ErrConflict instead of silently overwriting the first.
func (s *Store) RespondRequest(requestID, decision string, reason *string) (*models.AgentRequest, error) {
	if !models.ValidDecision(decision) {
		return nil, ErrInvalidDecision
	}

	var request models.AgentRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.AgentRequest{}).
			Where("id = ? AND status = ?", requestID, models.RequestPending).
			Updates(map[string]any{
				"status":       decision,
				"reason":       reason,
				"responded_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Distinguish unknown id from already-responded.
			var count int64
			if err := tx.Model(&models.AgentRequest{}).Where("id = ?", requestID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrConflict
		}
		return tx.Where("id = ?", requestID).First(&request).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish("agent_requests", "update", request.ID)
	return &request, nil
}

// MarkStaleOffline flips every employee whose last report predates cutoff
// to offline. Ingestion never writes offline itself; staleness is the only
// path into that state besides an explicit operator edit.
func (s *Store) MarkStaleOffline(cutoff time.Time) (int64, error) {
	result := s.db.Model(&models.Employee{}).
		Where("status <> ? AND last_seen IS NOT NULL AND last_seen < ?", models.StatusOffline, cutoff).
		Update("status", models.StatusOffline)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.logger.Info("swept stale employees offline", "count", result.RowsAffected)
		s.publish("employees", "update", "")
	}
	return result.RowsAffected, nil
}

// CreateEmployee registers a new tracked endpoint, generating its unique
// employee code and API key.
func (s *Store) CreateEmployee(name string, deviceName *string) (*models.Employee, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	key, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	employee := models.Employee{
		ID:           uuid.NewString(),
		Name:         name,
		EmployeeCode: generateEmployeeCode(),
		DeviceName:   deviceName,
		APIKey:       key,
		Status:       models.StatusOffline,
	}
	if err := s.db.Create(&employee).Error; err != nil {
		return nil, err
	}

	s.publish("employees", "insert", employee.ID)
	return &employee, nil
}

// EmployeeUpdate carries an operator edit; nil fields are left untouched.
type EmployeeUpdate struct {
	Name       *string
	DeviceName *string
	Status     *string
}

// UpdateEmployee applies an operator edit. This is the one path besides
// ingestion and the offline sweep that may set presence status.
func (s *Store) UpdateEmployee(id string, update EmployeeUpdate) (*models.Employee, error) {
	fields := map[string]any{}
	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return nil, ErrEmptyName
		}
		fields["name"] = *update.Name
	}
	if update.DeviceName != nil {
		fields["device_name"] = *update.DeviceName
	}
	if update.Status != nil {
		if !models.ValidPresenceStatus(*update.Status) {
			return nil, ErrInvalidPresenceStatus
		}
		fields["status"] = *update.Status
	}

	if len(fields) > 0 {
		result := s.db.Model(&models.Employee{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
		s.publish("employees", "update", id)
	}
	return s.GetEmployee(id)
}

// RotateAPIKey replaces the employee's credential. The old key stops
// resolving the moment the write commits.
func (s *Store) RotateAPIKey(id string) (*models.Employee, error) {
	key, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	result := s.db.Model(&models.Employee{}).Where("id = ?", id).Update("api_key", key)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.publish("employees", "update", id)
	return s.GetEmployee(id)
}

func (s *Store) GetEmployee(id string) (*models.Employee, error) {
	var employee models.Employee
	err := s.db.Where("id = ?", id).First(&employee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

func (s *Store) ListEmployees() ([]models.Employee, error) {
	var employees []models.Employee
	err := s.db.Order("created_at").Find(&employees).Error
	return employees, err
}

// ListActivity returns activity samples, newest first, optionally filtered
// by employee and by calendar date (YYYY-MM-DD).
func (s *Store) ListActivity(employeeID, date string, limit int) ([]models.ActivityLog, error) {
	query := s.db.Order("created_at DESC")
	if employeeID != "" {
		query = query.Where("employee_id = ?", employeeID)
	}
	if date != "" {
		query = query.Where("date(created_at) = ?", date)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var logs []models.ActivityLog
	err := query.Find(&logs).Error
	return logs, err
}

func (s *Store) ListScreenshots(employeeID string, limit int) ([]models.Screenshot, error) {
	query := s.db.Order("created_at DESC")
	if employeeID != "" {
		query = query.Where("employee_id = ?", employeeID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var shots []models.Screenshot
	err := query.Find(&shots).Error
	return shots, err
}

func (s *Store) ListRequests(status string) ([]models.AgentRequest, error) {
	query := s.db.Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.AgentRequest
	err := query.Find(&requests).Error
	return requests, err
}

// Stats is the dashboard summary.
type Stats struct {
	TotalEmployees   int64 `json:"total_employees"`
	OnlineEmployees  int64 `json:"online_employees"`
	TotalScreenshots int64 `json:"total_screenshots"`
	PendingRequests  int64 `json:"pending_requests"`
	WorkingSeconds   int64 `json:"working_seconds"`
	IdleSeconds      int64 `json:"idle_seconds"`
}

func (s *Store) Stats() (*Stats, error) {
	var stats Stats

	if err := s.db.Model(&models.Employee{}).Count(&stats.TotalEmployees).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Employee{}).Where("status = ?", models.StatusOnline).
		Count(&stats.OnlineEmployees).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Screenshot{}).Count(&stats.TotalScreenshots).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.AgentRequest{}).Where("status = ?", models.RequestPending).
		Count(&stats.PendingRequests).Error; err != nil {
		return nil, err
	}

	// duration_seconds is stored as reported; which interval convention
	// the agent uses is its own business.
	if err := s.db.Model(&models.ActivityLog{}).Where("status = ?", models.ReportWorking).
		Select("COALESCE(SUM(duration_seconds), 0)").Scan(&stats.WorkingSeconds).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.ActivityLog{}).Where("status = ?", models.ReportIdle).
		Select("COALESCE(SUM(duration_seconds), 0)").Scan(&stats.IdleSeconds).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}

func generateAPIKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

func generateEmployeeCode() string {
	return "EMP-" + strings.ToUpper(uuid.NewString()[:8])
}
