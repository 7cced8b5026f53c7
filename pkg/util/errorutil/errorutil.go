package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grocery-service/internal/domain"
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
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts business and infrastructure errors to DomainError.
// The four domain failure kinds map to stable codes so the HTTP layer can
// translate them without inspecting messages.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		details := map[string]any{}
		if len(validationErr.Fields) > 0 {
			details["fields"] = validationErr.Fields
		}
		return NewDomainError("VALIDATION_FAILED", validationErr.Error(), http.StatusBadRequest, details)
	}
	var authzErr *domain.AuthorizationError
	if errors.As(err, &authzErr) {
		return NewDomainError("FORBIDDEN", authzErr.Message, http.StatusForbidden, nil)
	}
	var stateErr *domain.StateError
	if errors.As(err, &stateErr) {
		return NewDomainError("INVALID_TRANSITION", stateErr.Message, http.StatusConflict, nil)
	}
	if errors.Is(err, domain.ErrAccountLocked) {
		return NewDomainError("ACCOUNT_LOCKED", domain.ErrAccountLocked.Error(), http.StatusLocked, nil)
	}
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return NewDomainError("INVALID_CREDENTIALS", domain.ErrInvalidCredentials.Error(), http.StatusUnauthorized, nil)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}

	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}
