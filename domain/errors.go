package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUnavailable     = errors.New("unavailable")
	ErrInvalidState    = errors.New("invalid state")
	ErrTemplateMissing = errors.New("document template not configured")

	ErrEmergencyCodeExhausted = errors.New("could not generate a unique emergency code")
)

// AppError attaches a stable code to one of the sentinel kinds above.
type AppError struct {
	Kind    error
	Code    string
	Message string
	Details map[string]any
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Kind }

func NewError(kind error, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func Validation(message string) *AppError {
	return &AppError{Kind: ErrValidation, Code: "VALIDATION", Message: message}
}

func NotFound(what string) *AppError {
	return &AppError{Kind: ErrNotFound, Code: "NOT_FOUND", Message: what + " not found"}
}

func Forbidden(message string) *AppError {
	return &AppError{Kind: ErrForbidden, Code: "FORBIDDEN", Message: message}
}

func Conflict(code, message string) *AppError {
	return &AppError{Kind: ErrConflict, Code: code, Message: message}
}

// Attendance error codes.
const (
	CodeInvalidQR           = "ATT001"
	CodeInvalidEmergency    = "ATT002"
	CodeNotCheckedIn        = "ATT003"
	CodeAlreadyCheckedIn    = "ATT004"
	CodeNoApplication       = "ATT005"
	CodeModificationExists  = "ATT006"
	CodeModificationInvalid = "ATT007"
	CodeAccessDenied        = "ATT008"
)
