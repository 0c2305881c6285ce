package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		enabled zapcore.Level
		wantErr string
	}{
		{name: "json info", level: "info", format: "json", enabled: zapcore.InfoLevel},
		{name: "console debug", level: "debug", format: "console", enabled: zapcore.DebugLevel},
		{name: "defaults", enabled: zapcore.InfoLevel},
		{name: "upper case level", level: "WARN", format: "json", enabled: zapcore.WarnLevel},
		{name: "invalid level", level: "loud", format: "json", wantErr: "invalid log level"},
		{name: "invalid format", level: "info", format: "xml", wantErr: "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Nil(t, logger)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.enabled-1))
		})
	}
}

func TestInitTracing(t *testing.T) {
	t.Run("local provider without endpoint", func(t *testing.T) {
		shutdown, err := InitTracing(context.Background(), TracingOptions{SampleRate: 1}, zap.NewNop())
		require.NoError(t, err)
		defer func() { assert.NoError(t, shutdown(context.Background())) }()

		_, span := otel.Tracer("test").Start(context.Background(), "op")
		defer span.End()
		assert.True(t, span.SpanContext().IsSampled())
	})

	t.Run("zero rate drops new roots", func(t *testing.T) {
		shutdown, err := InitTracing(context.Background(), TracingOptions{SampleRate: 0}, zap.NewNop())
		require.NoError(t, err)
		defer func() { assert.NoError(t, shutdown(context.Background())) }()

		_, span := otel.Tracer("test").Start(context.Background(), "op")
		defer span.End()
		assert.False(t, span.SpanContext().IsSampled())
	})
}

func TestHTTPMiddleware(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingOptions{SampleRate: 1}, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	var sc trace.SpanContext
	handler := HTTPMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc = trace.SpanContextFromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.True(t, sc.IsValid())
}
