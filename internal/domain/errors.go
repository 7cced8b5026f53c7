package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAccountLocked signals a login attempt against a locked account. It is
// distinct from ErrInvalidCredentials so callers can short-circuit before
// password verification and present a different message.
var ErrAccountLocked = errors.New("account temporarily locked")

// ErrInvalidCredentials signals a failed password verification.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports a payload that fails its type-specific schema.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
	}
	return e.Message
}

// NewValidationError constructs a ValidationError.
func NewValidationError(message string, fields ...string) error {
	return &ValidationError{Message: message, Fields: fields}
}

// AuthorizationError reports an actor whose role or ownership does not
// satisfy the gate for the attempted transition.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

// NewAuthorizationError constructs an AuthorizationError.
func NewAuthorizationError(message string) error {
	return &AuthorizationError{Message: message}
}

// StateError reports a transition that is illegal from the entity's current
// status. The entity is never mutated when a StateError is returned.
type StateError struct {
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}

// NewStateError constructs a StateError.
func NewStateError(message string) error {
	return &StateError{Message: message}
}
