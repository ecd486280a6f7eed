package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes for the authorization core. Handlers never collapse these:
// the boundary maps UNAUTHENTICATED/INSUFFICIENT_PERMISSION to the 401/403
// family and the business-rule codes to 400.
const (
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeInsufficientPermission = "INSUFFICIENT_PERMISSION"
	CodeNotFound               = "NOT_FOUND"
	CodeDuplicateEmail         = "DUPLICATE_EMAIL"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeAdminAlreadyExists     = "ADMIN_ALREADY_EXISTS"
	CodeCannotDeleteAdmin      = "CANNOT_DELETE_ADMIN"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeInternalError          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

func NewInsufficientPermission(message string) error {
	return NewDomainError(CodeInsufficientPermission, message, http.StatusForbidden, nil)
}

func NewDuplicateEmail(email string) error {
	return NewDomainError(CodeDuplicateEmail, "email already registered", http.StatusBadRequest,
		map[string]any{"email": email})
}

func NewInvalidTransition(message string) error {
	return NewDomainError(CodeInvalidTransition, message, http.StatusBadRequest, nil)
}

func NewAdminAlreadyExists() error {
	return NewDomainError(CodeAdminAlreadyExists, "an administrator already exists", http.StatusBadRequest, nil)
}

func NewCannotDeleteAdmin() error {
	return NewDomainError(CodeCannotDeleteAdmin, "the administrator account cannot be removed", http.StatusBadRequest, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
