package models

import (
	"time"
)

// Presence status values. Derived from activity reports, except that an
// operator may edit them directly and the offline sweeper sets offline.
const (
	StatusOnline  = "online"
	StatusIdle    = "idle"
	StatusOffline = "offline"
)

// Report status values, self-reported by the agent on each activity sample.
const (
	ReportWorking = "working"
	ReportIdle    = "idle"
)

// Agent request types.
const (
	RequestClose     = "close"
	RequestUninstall = "uninstall"
)

// Agent request states. Approved and denied are terminal.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestDenied   = "denied"
)

// Employee is a tracked endpoint: identity plus the current presence
// snapshot. The API key is the sole agent credential.
type Employee struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	Name         string     `json:"name"`
	EmployeeCode string     `gorm:"uniqueIndex" json:"employee_code"`
	DeviceName   *string    `json:"device_name"`
	APIKey       string     `gorm:"column:api_key;uniqueIndex" json:"api_key"`
	Status       string     `json:"status"`
	CurrentApp   *string    `json:"current_app"`
	LastSeen     *time.Time `json:"last_seen"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ActivityLog is one immutable activity sample. Append-only.
type ActivityLog struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	EmployeeID      string    `gorm:"index" json:"employee_id"`
	AppName         string    `json:"app_name"`
	Status          string    `json:"status"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// Screenshot references one uploaded image. The binary lives on disk under
// the upload directory; the row only carries the relative path. Append-only.
type Screenshot struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	EmployeeID string    `gorm:"index" json:"employee_id"`
	ImagePath  string    `json:"image_path"`
	CreatedAt  time.Time `json:"created_at"`
}

// AgentRequest is one close/uninstall permission ask and its resolution.
// At most one pending row per (employee, request_type). Rows are never
// deleted; resolved requests stay as an audit trail.
type AgentRequest struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	EmployeeID  string     `gorm:"index" json:"employee_id"`
	RequestType string     `json:"request_type"`
	Status      string     `json:"status"`
	Reason      *string    `json:"reason"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at"`
}

// ValidReportStatus reports whether s is a value an agent may self-report.
func ValidReportStatus(s string) bool {
	return s == ReportWorking || s == ReportIdle
}

// ValidRequestType reports whether t is a permission request type.
func ValidRequestType(t string) bool {
	return t == RequestClose || t == RequestUninstall
}

// ValidDecision reports whether s is a terminal request state an operator
// may set.
func ValidDecision(s string) bool {
	return s == RequestApproved || s == RequestDenied
}

// ValidPresenceStatus reports whether s is a presence status value.
func ValidPresenceStatus(s string) bool {
	return s == StatusOnline || s == StatusIdle || s == StatusOffline
}
