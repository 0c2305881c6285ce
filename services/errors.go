package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeUnauthorized        ErrorType = "unauthorized"
	ErrorTypeForbidden           ErrorType = "forbidden"
	ErrorTypeUnknownRegion       ErrorType = "unknown_region"
	ErrorTypeConfiguration       ErrorType = "configuration"
	ErrorTypeUpstreamUnavailable ErrorType = "upstream_unavailable"
	ErrorTypeUpstreamRejected    ErrorType = "upstream_rejected"
	ErrorTypeUpstream            ErrorType = "upstream"
	ErrorTypeInternal            ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	ErrUserNotFound = NewDomainError(ErrorTypeNotFound, "user not found", nil)

	ErrInvalidToken = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)

	ErrSuperAdminRequired = NewDomainError(ErrorTypeForbidden, "Unauthorized: Only super admins can view audit logs", nil)

	ErrUnknownRegion = NewDomainError(ErrorTypeUnknownRegion, "unknown region", nil)

	ErrMissingSecret = NewDomainError(ErrorTypeConfiguration, "credential secret not configured", nil)

	ErrUpstreamUnavailable = NewDomainError(ErrorTypeUpstreamUnavailable, "backend unavailable", nil)
	ErrUpstreamRejected    = NewDomainError(ErrorTypeUpstreamRejected, "backend rejected request", nil)
	ErrUpstream            = NewDomainError(ErrorTypeUpstream, "backend error", nil)

	ErrAuditFailed = NewDomainError(ErrorTypeInternal, "audit write failed", nil)
)

// Error type checking helper functions

func hasType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return hasType(err, ErrorTypeUnauthorized)
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return hasType(err, ErrorTypeForbidden)
}

// IsUnknownRegionError checks if an error is an unknown region error
func IsUnknownRegionError(err error) bool {
	return hasType(err, ErrorTypeUnknownRegion)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return hasType(err, ErrorTypeConfiguration)
}

// IsUpstreamUnavailableError checks if the backend could not be reached
func IsUpstreamUnavailableError(err error) bool {
	return hasType(err, ErrorTypeUpstreamUnavailable)
}

// IsUpstreamRejectedError checks if the backend reported a structured failure
func IsUpstreamRejectedError(err error) bool {
	return hasType(err, ErrorTypeUpstreamRejected)
}

// IsUpstreamError checks if an error is a generic backend error
func IsUpstreamError(err error) bool {
	return hasType(err, ErrorTypeUpstream)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetErrorMessage returns the client-facing message of a domain error.
// Non-domain errors yield their Error() text.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// NewValidationError creates a validation error with a client-facing message
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, nil)
}

// NewForbiddenError creates an authorization error with a client-facing message
func NewForbiddenError(message string) *DomainError {
	return NewDomainError(ErrorTypeForbidden, message, nil)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string, err error) *DomainError {
	return NewDomainError(ErrorTypeConfiguration, message, err)
}
