package domain

import (
	"errors"
	"net/http"
	"strings"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// NotFoundError indicates a project or media object was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError carries one or more validation messages for an import or request
	ValidationError struct {
		Messages []string
	}

	// UnauthorizedError indicates the editor token was missing or rejected
	UnauthorizedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

// Error joins all messages with "; " so callers get a single readable line
func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

// Is allows errors.Is() to match typed errors against the sentinels below
func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoCurrent    = errors.New("no current project")
)
