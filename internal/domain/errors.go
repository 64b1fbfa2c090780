package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness rule rejected the write.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation marks input rejected before any store call.
	ErrValidation = errors.New("validation failed")
	// ErrCapacityExceeded is returned when a room has no free seat.
	ErrCapacityExceeded = errors.New("room capacity exceeded")
	// ErrRoomNotEmpty is returned when deleting a room that still houses clients.
	ErrRoomNotEmpty = errors.New("room not empty")
	// ErrInvalidTransition is returned for a status change the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrImportParse is returned when a spreadsheet cannot be read.
	ErrImportParse = errors.New("import parse error")
	// ErrStore wraps unexpected backend failures (network, auth, quota).
	ErrStore = errors.New("store error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
