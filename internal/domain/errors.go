package domain

import "errors"

// Error taxonomy shared across the control plane. Validation and
// authorization failures surface to callers with distinct codes; corrupt
// stored data is recovered locally with safe defaults and never propagated.
var (
	ErrValidation       = errors.New("validation failed")
	ErrSessionRequired  = errors.New("session required")
	ErrSessionNotActive = errors.New("session not active")
	ErrSessionNotFound  = errors.New("session not found")
	ErrStudentNotFound  = errors.New("student not found")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrCorrupt          = errors.New("corrupt data")
)
