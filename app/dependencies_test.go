package app

import (
	"context"
	"testing"
	"time"

	"github.com/Ashwin12159/Control-Plane/config"
	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/repositories/postgres"
	"github.com/Ashwin12159/Control-Plane/services"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Database:    config.DatabaseConfig{ConnectionString: "postgres://test@localhost/test"},
		Session:     config.SessionConfig{Secret: "session-secret"},
		Regions:     config.RegionsConfig{EnvPrefix: "GRPC"},
		Backend:     config.BackendConfig{Insecure: true, DispatchTimeout: 30 * time.Second},
		Credentials: config.CredentialsConfig{TTL: 20 * time.Second, SecretPrefix: "JWT_SECRET"},
		Cache: config.CacheConfig{
			RedisEnabled:   false,
			OpTimeout:      100 * time.Millisecond,
			CallDetailsTTL: 600 * time.Second,
			MemoryMaxItems: 100,
		},
		Authz: config.AuthzConfig{UnmappedPolicy: "deny"},
		Audit: config.AuditConfig{
			BufferSize:   16,
			WorkerCount:  1,
			WriteTimeout: time.Second,
			StopTimeout:  time.Second,
		},
	}
}

func mockFactory(t *testing.T) (*postgres.RepositoryFactory, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	return postgres.NewRepositoryFactoryFromDB(postgres.WrapDB(db, logger), nil, logger), mock
}

func expectSchema(mock sqlmock.Sqlmock) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS roles").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_logs").WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestNewDependenciesFromFactory(t *testing.T) {
	t.Run("wires every component", func(t *testing.T) {
		ctx := context.Background()
		factory, mock := mockFactory(t)
		expectSchema(mock)

		deps, err := NewDependenciesFromFactory(ctx, testConfig(t), factory, zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.NotNil(t, deps.DB)
		assert.NotNil(t, deps.Users)
		assert.NotNil(t, deps.AuditLogs)
		assert.NotNil(t, deps.Cache)
		assert.NotNil(t, deps.Backends)
		assert.NotNil(t, deps.Audit)
		assert.NotNil(t, deps.AuthMiddleware)
		assert.NotNil(t, deps.AuthzMiddleware)
		assert.Nil(t, deps.kafkaSink)

		assert.Equal(t, []string{"AU", "UK", "US"}, deps.Regions.Codes())
		assert.Len(t, deps.Gateway.Catalog().List(), 9)
		// the dispatch deadline never outlives the credential
		assert.Equal(t, 20*time.Second, deps.Gateway.DispatchTimeout())

		mock.ExpectClose()
		require.NoError(t, deps.Close(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("authorization table denies unmapped operations", func(t *testing.T) {
		factory, mock := mockFactory(t)
		expectSchema(mock)

		deps, err := NewDependenciesFromFactory(context.Background(), testConfig(t), factory, zaptest.NewLogger(t))
		require.NoError(t, err)

		admin := models.NewPrincipal("1", "Admin", "admin@example.com", models.RoleSuperAdmin)
		assert.NoError(t, deps.Authz.AuthorizeOperation(admin, "push-queue"))
		assert.True(t, services.IsForbiddenError(deps.Authz.AuthorizeOperation(admin, "drop-tables")))

		mock.ExpectClose()
		require.NoError(t, deps.Close(context.Background()))
	})

	t.Run("kafka mirror is attached when brokers are configured", func(t *testing.T) {
		factory, mock := mockFactory(t)
		expectSchema(mock)
		cfg := testConfig(t)
		cfg.Audit.KafkaBrokers = []string{"localhost:9092"}
		cfg.Audit.KafkaTopic = "control-plane.audit"

		deps, err := NewDependenciesFromFactory(context.Background(), cfg, factory, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, deps.kafkaSink)
		assert.Equal(t, "kafka:control-plane.audit", deps.kafkaSink.Name())

		mock.ExpectClose()
		require.NoError(t, deps.Close(context.Background()))
	})

	t.Run("schema failure", func(t *testing.T) {
		factory, mock := mockFactory(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS roles").WillReturnError(assert.AnError)

		deps, err := NewDependenciesFromFactory(context.Background(), testConfig(t), factory, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize schema")
	})

	t.Run("bad regions file", func(t *testing.T) {
		factory, mock := mockFactory(t)
		expectSchema(mock)
		cfg := testConfig(t)
		cfg.Regions.File = "/nonexistent/regions.yaml"

		deps, err := NewDependenciesFromFactory(context.Background(), cfg, factory, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to load regions")
	})
}

func TestDependenciesClose(t *testing.T) {
	t.Run("stops started audit workers", func(t *testing.T) {
		ctx := context.Background()
		factory, mock := mockFactory(t)
		expectSchema(mock)

		deps, err := NewDependenciesFromFactory(ctx, testConfig(t), factory, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NoError(t, deps.Start())
		assert.True(t, deps.Audit.GetStats().Started)

		mock.ExpectClose()
		require.NoError(t, deps.Close(ctx))
		assert.False(t, deps.Audit.GetStats().Started)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("partial dependencies", func(t *testing.T) {
		deps := &Dependencies{Config: testConfig(t), Logger: zaptest.NewLogger(t)}
		assert.NoError(t, deps.Close(context.Background()))
		assert.NoError(t, deps.Start())
	})
}

func TestDependencies_CacheCleanupWorker(t *testing.T) {
	ctx := context.Background()
	factory, mock := mockFactory(t)
	expectSchema(mock)
	cfg := testConfig(t)
	cfg.Cache.CleanupInterval = 10 * time.Millisecond

	deps, err := NewDependenciesFromFactory(ctx, cfg, factory, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, deps.cacheMemory.Set(ctx, "stale", "v", time.Millisecond))
	require.NoError(t, deps.Start())
	require.NotNil(t, deps.stopWorkers)

	assert.Eventually(t, func() bool {
		return deps.cacheMemory.Stats().Size == 0
	}, time.Second, 10*time.Millisecond)

	stats, ok := deps.Cache.MemoryStats()
	require.True(t, ok)
	assert.Equal(t, 100, stats.MaxSize)

	mock.ExpectClose()
	require.NoError(t, deps.Close(ctx))
	assert.Nil(t, deps.stopWorkers)

	// a stopped worker no longer sweeps
	require.NoError(t, deps.cacheMemory.Set(ctx, "after-close", "v", time.Millisecond))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, deps.cacheMemory.Stats().Size)
}

func TestDependencies_RedisRecoversAfterStartup(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	addr := mr.Addr()
	mr.Close()

	ctx := context.Background()
	factory, mock := mockFactory(t)
	expectSchema(mock)
	cfg := testConfig(t)
	cfg.Cache.RedisEnabled = true
	cfg.Cache.RedisAddr = addr

	deps, err := NewDependenciesFromFactory(ctx, cfg, factory, zaptest.NewLogger(t))
	require.NoError(t, err)

	// served from memory while redis is down
	deps.Cache.SetJSON(ctx, "before", map[string]string{"callId": "CA1"}, time.Minute)
	var got map[string]string
	require.True(t, deps.Cache.GetJSON(ctx, "before", &got))
	assert.Equal(t, "CA1", got["callId"])

	require.NoError(t, mr.StartAddr(addr))
	defer mr.Close()

	assert.Eventually(t, func() bool {
		deps.Cache.SetJSON(ctx, "after", map[string]string{"callId": "CA2"}, time.Minute)
		return mr.Exists("after")
	}, 5*time.Second, 50*time.Millisecond)
	assert.NoError(t, deps.Cache.Ping(ctx))

	mock.ExpectClose()
	require.NoError(t, deps.Close(ctx))
}
