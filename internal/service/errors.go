package service

import "errors"

// Typed failures surfaced to callers. Operations validate fully before
// the first write, so any of these means no collection was touched.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateKey       = errors.New("already exists")
	ErrInvalidState       = errors.New("invalid state")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("operation not permitted")
)
