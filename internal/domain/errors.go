// Package domain contains business logic types and errors.
// Domain errors represent business-level failures, NOT HTTP errors.
// They are infrastructure-agnostic and can be mapped by adapters.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates business rule validation failed.
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthenticated indicates the operation requires a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrEmptyName indicates a collection name was empty after trimming.
	ErrEmptyName = errors.New("empty collection name")

	// ErrNoQuotes indicates the quote catalog is empty.
	ErrNoQuotes = errors.New("no quotes available")

	// ErrUnavailable indicates a required dependency is unavailable.
	ErrUnavailable = errors.New("unavailable")
)

// NotFoundError provides context for not found errors.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error with context.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError provides context for validation errors.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error with context.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotAuthenticatedError provides context for operations attempted
// without a signed-in user.
type NotAuthenticatedError struct {
	Operation string
}

// Error implements the error interface.
func (e *NotAuthenticatedError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("operation %q requires authentication", e.Operation)
	}

	return "not authenticated"
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NotAuthenticatedError) Unwrap() error {
	return ErrNotAuthenticated
}

// NewNotAuthenticatedError creates a not authenticated error with context.
func NewNotAuthenticatedError(operation string) error {
	return &NotAuthenticatedError{Operation: operation}
}

// UnavailableError provides context for unavailable errors.
type UnavailableError struct {
	Service string
	Reason  string
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unavailable", e.Service)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

// NewUnavailableError creates an unavailable error with context.
func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotAuthenticated checks if an error is a not authenticated error.
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

// IsEmptyName checks if an error is an empty collection name error.
func IsEmptyName(err error) bool {
	return errors.Is(err, ErrEmptyName)
}

// IsNoQuotes checks if an error is an empty catalog error.
func IsNoQuotes(err error) bool {
	return errors.Is(err, ErrNoQuotes)
}

// IsUnavailable checks if an error is an unavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
