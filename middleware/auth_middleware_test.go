package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/services/authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockTokenValidator is a mock implementation of TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, token string) (*models.Principal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body["error"]
}

func TestRequireAuth(t *testing.T) {
	logger := zap.NewNop()
	principal := models.NewPrincipal("user-123", "Dana", "user@example.com", models.RoleUser, "check-sync")

	t.Run("valid token in Authorization header allows request", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		mockValidator.On("ValidateToken", mock.Anything, "valid-token").Return(principal, nil)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			extracted := GetPrincipalFromContext(r.Context())
			require.NotNil(t, extracted)
			assert.Equal(t, "user-123", extracted.ID)
			assert.True(t, extracted.HasPermission("check-sync"))
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockValidator.AssertExpectations(t)
	})

	t.Run("session cookie allows request", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		mockValidator.On("ValidateToken", mock.Anything, "session-value").Return(principal, nil)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotNil(t, GetPrincipalFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "session-value"})
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockValidator.AssertExpectations(t)
	})

	t.Run("auth_token cookie allows request", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		mockValidator.On("ValidateToken", mock.Anything, "cookie-token").Return(principal, nil)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: "cookie-token"})
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("header takes precedence over cookie", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		mockValidator.On("ValidateToken", mock.Anything, "header-token").Return(principal, nil)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		req.AddCookie(&http.Cookie{Name: "session", Value: "cookie-token"})
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockValidator.AssertNotCalled(t, "ValidateToken", mock.Anything, "cookie-token")
	})

	t.Run("missing token returns 401", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Unauthorized", errorBody(t, w))
		mockValidator.AssertNotCalled(t, "ValidateToken")
	})

	t.Run("non bearer authorization header returns 401", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockValidator.AssertNotCalled(t, "ValidateToken")
	})

	t.Run("invalid token returns 401", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		mockValidator.On("ValidateToken", mock.Anything, "bad-token").Return(nil, errors.New("signature is invalid"))

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid or expired session", errorBody(t, w))
		mockValidator.AssertExpectations(t)
	})
}

func TestAuthzMiddleware(t *testing.T) {
	logger := zap.NewNop()
	m := NewAuthzMiddleware(authz.NewEngine(nil, authz.UnmappedDeny, logger), logger)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve := func(h http.Handler, p *models.Principal) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/audit-logs", nil)
		if p != nil {
			req = req.WithContext(WithPrincipal(req.Context(), p))
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	admin := models.NewPrincipal("a", "", "", models.RoleSuperAdmin)
	user := models.NewPrincipal("u", "", "", models.RoleUser, models.PermissionCallDetails)
	everything := models.NewPrincipal("e", "", "", models.RoleUser,
		models.PermissionRabbitMQ, models.PermissionCallDetails, models.PermissionExportCallDetails)

	t.Run("super admin route", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(m.RequireSuperAdmin(ok), admin).Code)

		w := serve(m.RequireSuperAdmin(ok), everything)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Unauthorized: Only super admins can view audit logs", errorBody(t, w))
	})

	t.Run("permission route", func(t *testing.T) {
		guarded := m.RequirePermission(models.PermissionCallDetails)(ok)
		assert.Equal(t, http.StatusOK, serve(guarded, user).Code)
		assert.Equal(t, http.StatusOK, serve(guarded, admin).Code)

		w := serve(m.RequirePermission(models.PermissionRabbitMQ)(ok), user)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "You do not have permission to access: rabbitmq", errorBody(t, w))
	})

	t.Run("no principal", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(m.RequireSuperAdmin(ok), nil).Code)
	})
}
