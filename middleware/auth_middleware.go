package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/utils"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating session tokens
type TokenValidator interface {
	// ValidateToken validates a session token and returns the principal it carries
	ValidateToken(ctx context.Context, token string) (*models.Principal, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
	}
}

// sessionCookieName is set by the UI after sign-in; authTokenCookieName is accepted for API clients.
// The Authorization header takes precedence over both.
const authTokenCookieName = "auth_token"
const sessionCookieName = "session"

// RequireAuth is a middleware that requires a valid session token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Unauthorized")
			return
		}

		principal, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired session")
			return
		}

		ctx = WithPrincipal(ctx, principal)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", principal.ID),
			zap.String("role", string(principal.Role)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken extracts the session token from the Authorization header ("Bearer TOKEN")
// or the "session" / "auth_token" cookie. The header takes precedence.
func extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	for _, name := range []string{sessionCookieName, authTokenCookieName} {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
