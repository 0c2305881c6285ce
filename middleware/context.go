package middleware

import (
	"context"

	"github.com/Ashwin12159/Control-Plane/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// PrincipalKey is the context key for the session principal
	PrincipalKey contextKey = "principal"

	// CorrelationIDKey is the context key for the call correlation ID
	CorrelationIDKey contextKey = "correlation_id"

	// ClientIPKey is the context key for the caller's IP address
	ClientIPKey contextKey = "client_ip"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetPrincipalFromContext retrieves the session principal from context
func GetPrincipalFromContext(ctx context.Context) *models.Principal {
	if val := ctx.Value(PrincipalKey); val != nil {
		if p, ok := val.(*models.Principal); ok {
			return p
		}
	}
	return nil
}

// WithPrincipal adds the session principal to the context
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetCorrelationIDFromContext retrieves the correlation ID from context
func GetCorrelationIDFromContext(ctx context.Context) string {
	if val := ctx.Value(CorrelationIDKey); val != nil {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// WithCorrelationID adds a correlation ID to the context
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// GetClientIPFromContext retrieves the client IP from context
func GetClientIPFromContext(ctx context.Context) string {
	if val := ctx.Value(ClientIPKey); val != nil {
		if ip, ok := val.(string); ok {
			return ip
		}
	}
	return ""
}

// WithClientIP adds the client IP to the context
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}
