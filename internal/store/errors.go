package store

import "errors"

var (
	// ErrUnauthorized is returned for a missing or non-matching API key.
	ErrUnauthorized = errors.New("store: invalid api key")
	// ErrNotFound covers both unknown ids and ids owned by another
	// employee; callers cannot tell the two apart.
	ErrNotFound = errors.New("store: record not found")
	// ErrConflict is returned when responding to a request that already
	// left the pending state.
	ErrConflict = errors.New("store: request already responded")

	ErrInvalidReportStatus   = errors.New("store: status must be \"working\" or \"idle\"")
	ErrInvalidRequestType    = errors.New("store: request type must be \"close\" or \"uninstall\"")
	ErrInvalidDecision       = errors.New("store: decision must be \"approved\" or \"denied\"")
	ErrInvalidPresenceStatus = errors.New("store: invalid presence status")
	ErrEmptyAppName          = errors.New("store: app name must not be empty")
	ErrNegativeDuration      = errors.New("store: duration must not be negative")
	ErrEmptyName             = errors.New("store: name must not be empty")
)
