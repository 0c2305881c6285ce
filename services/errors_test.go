package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeUnknownRegion, "unknown region: EU", baseErr)

	assert.Equal(t, ErrorTypeUnknownRegion, domainErr.Type)
	assert.Equal(t, "unknown region: EU", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeUpstreamUnavailable,
				Message: "backend unavailable",
				Err:     errors.New("connection refused"),
			},
			wantMsg: "upstream_unavailable: backend unavailable (connection refused)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "callId is required",
			},
			wantMsg: "validation: callId is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same error type", NewConfigurationError("missing secret", nil), ErrMissingSecret, true},
		{"different error type", NewValidationError("bad"), ErrMissingSecret, false},
		{"wrapped domain error", fmt.Errorf("dispatch: %w", ErrUpstreamRejected), ErrUpstreamRejected, true},
		{"plain error", errors.New("plain"), ErrAuditFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewForbiddenError("You do not have permission to access: rabbitmq").
		WithDetail("permission", "rabbitmq")

	assert.Equal(t, "rabbitmq", GetErrorDetails(err)["permission"])
}

func TestErrorTypeHelpers(t *testing.T) {
	checks := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", ErrUserNotFound, IsNotFoundError},
		{"validation", NewValidationError("x"), IsValidationError},
		{"unauthorized", ErrInvalidToken, IsUnauthorizedError},
		{"forbidden", NewForbiddenError("x"), IsForbiddenError},
		{"unknown region", ErrUnknownRegion, IsUnknownRegionError},
		{"configuration", ErrMissingSecret, IsConfigurationError},
		{"upstream unavailable", ErrUpstreamUnavailable, IsUpstreamUnavailableError},
		{"upstream rejected", ErrUpstreamRejected, IsUpstreamRejectedError},
		{"upstream", ErrUpstream, IsUpstreamError},
		{"internal", WrapInternal("boom", errors.New("db")), IsInternalError},
	}

	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			assert.True(t, c.check(c.err))
			assert.True(t, c.check(fmt.Errorf("wrapped: %w", c.err)))
			assert.False(t, c.check(errors.New("plain")))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	assert.Equal(t, "queue missing", GetErrorMessage(NewDomainError(ErrorTypeUpstreamRejected, "queue missing", nil)))
	assert.Equal(t, "plain", GetErrorMessage(errors.New("plain")))
	assert.Equal(t, "", GetErrorMessage(nil))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
	assert.Nil(t, GetErrorDetails(errors.New("plain")))
}
