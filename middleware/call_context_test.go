package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallContext(t *testing.T) {
	var gotID, gotIP string
	handler := CallContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetCorrelationIDFromContext(r.Context())
		gotIP = GetClientIPFromContext(r.Context())
	}))

	t.Run("inbound uuid is kept", func(t *testing.T) {
		inbound := uuid.NewString()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/AU/list-practices", nil)
		req.Header.Set(CorrelationIDHeader, inbound)
		req.RemoteAddr = "203.0.113.9:51234"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, inbound, gotID)
		assert.Equal(t, inbound, w.Header().Get(CorrelationIDHeader))
		assert.Equal(t, "203.0.113.9", gotIP)
	})

	t.Run("non uuid is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(CorrelationIDHeader, "abc; drop table")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		parsed, err := uuid.Parse(gotID)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), parsed.Version())
		assert.Equal(t, gotID, w.Header().Get(CorrelationIDHeader))
	})

	t.Run("each call gets its own id", func(t *testing.T) {
		ids := map[string]bool{}
		for i := 0; i < 5; i++ {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
			ids[gotID] = true
		}
		assert.Len(t, ids, 5)
	})

	t.Run("remote addr without port", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.2.3"
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "10.1.2.3", gotIP)
	})
}

func TestCallContext_RequestID(t *testing.T) {
	var gotReqID string
	handler := chimw.RequestID(CallContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReqID = GetRequestIDFromContext(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/regions", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "req-42", gotReqID)
}
