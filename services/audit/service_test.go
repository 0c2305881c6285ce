package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
	mu           sync.Mutex
	insertedLogs []*models.AuditLog
}

func (m *MockAuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	m.mu.Lock()
	defer m.mu.Unlock()
	if args.Error(0) == nil {
		m.insertedLogs = append(m.insertedLogs, log)
	}
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, int, error) {
	args := m.Called(ctx, filter)
	var logs []*models.AuditLog
	if l := args.Get(0); l != nil {
		logs = l.([]*models.AuditLog)
	}
	return logs, args.Int(1), args.Error(2)
}

func (m *MockAuditRepository) GetInsertedLogs() []*models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AuditLog, len(m.insertedLogs))
	copy(out, m.insertedLogs)
	return out
}

type recordingSink struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Write(ctx context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

func testPrincipal() *models.Principal {
	return models.NewPrincipal("u1", "Ana", "ana@example.com", models.RoleUser, models.PermissionCheckSync)
}

func TestAuditService_StartStop(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	service := NewAuditService(mockRepo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 2})

	require.NoError(t, service.Start())

	stats := service.GetStats()
	assert.True(t, stats.Started)
	assert.Equal(t, 2, stats.WorkerCount)
	assert.Equal(t, 10, stats.BufferSize)

	assert.Error(t, service.Start())

	require.NoError(t, service.Stop(5*time.Second))
	assert.False(t, service.GetStats().Started)
	assert.Error(t, service.Stop(time.Second))
}

func TestAuditService_Record(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewAuditService(mockRepo, zap.NewNop(), Config{BufferSize: 100, WorkerCount: 2})
	require.NoError(t, service.Start())

	payload := map[string]interface{}{"practice": map[string]string{"practiceId": "p1"}}
	service.Record(context.Background(), models.AuditActionCheckSync, "AU", testPrincipal(), "req-1", payload)

	require.NoError(t, service.Stop(5*time.Second))

	logs := mockRepo.GetInsertedLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionCheckSync, logs[0].Action)
	assert.Equal(t, "AU", logs[0].Region)
	assert.Equal(t, "ana@example.com", logs[0].DoneBy)
	assert.Equal(t, "req-1", logs[0].RequestID)
	assert.JSONEq(t, `{"practice":{"practiceId":"p1"}}`, string(logs[0].Payload))
}

func TestAuditService_RecordSwallowsSinkErrors(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("database down"))
	extra := &recordingSink{}

	service := NewAuditService(mockRepo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 1}, extra)
	require.NoError(t, service.Start())

	assert.NotPanics(t, func() {
		service.Record(context.Background(), models.AuditActionPushQueue, "US", testPrincipal(), "req-2", nil)
	})
	require.NoError(t, service.Stop(5*time.Second))

	assert.Equal(t, 1, extra.count(), "remaining sinks still receive the record")
	assert.Equal(t, uint64(1), service.GetStats().Failed)
}

func TestAuditService_RecordBeforeStartAndAfterStop(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	service := NewAuditService(mockRepo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 1})

	assert.NotPanics(t, func() {
		service.Record(context.Background(), models.AuditActionListPractices, "UK", testPrincipal(), "r", nil)
	})

	require.NoError(t, service.Start())
	require.NoError(t, service.Stop(time.Second))

	assert.NotPanics(t, func() {
		service.Record(context.Background(), models.AuditActionListPractices, "UK", testPrincipal(), "r", nil)
	})
	assert.Equal(t, uint64(2), service.GetStats().Dropped)
	mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestAuditService_MultipleEvents(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewAuditService(mockRepo, zap.NewNop(), Config{BufferSize: 1000, WorkerCount: 5})
	require.NoError(t, service.Start())

	goroutineCount := 10
	eventsPerGoroutine := 10
	var wg sync.WaitGroup
	for i := 0; i < goroutineCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				service.Record(context.Background(), models.AuditActionGetCallDetails, "AU", testPrincipal(), "r", nil)
			}
		}()
	}
	wg.Wait()

	require.NoError(t, service.Stop(5*time.Second))
	assert.Len(t, mockRepo.GetInsertedLogs(), goroutineCount*eventsPerGoroutine)
}

func TestAuditService_BufferFull(t *testing.T) {
	release := make(chan struct{})
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		<-release
	})

	service := NewAuditService(mockRepo, zap.NewNop(), Config{BufferSize: 2, WorkerCount: 1})
	require.NoError(t, service.Start())

	start := time.Now()
	for i := 0; i < 20; i++ {
		service.Record(context.Background(), models.AuditActionPushQueue, "AU", testPrincipal(), "r", nil)
	}
	assert.Less(t, time.Since(start), time.Second, "record never blocks")
	assert.Greater(t, service.GetStats().Dropped, uint64(0))

	close(release)
	require.NoError(t, service.Stop(5*time.Second))
}

func TestNormalizeFilter(t *testing.T) {
	tests := []struct {
		name     string
		in       models.AuditLogFilter
		expected models.AuditLogFilter
	}{
		{
			name:     "defaults",
			in:       models.AuditLogFilter{},
			expected: models.AuditLogFilter{Page: 1, Limit: 10, SortBy: "createdAt", SortOrder: "desc"},
		},
		{
			name:     "limit clamped",
			in:       models.AuditLogFilter{Page: 3, Limit: 500, SortBy: "username", SortOrder: "ASC"},
			expected: models.AuditLogFilter{Page: 3, Limit: 100, SortBy: "username", SortOrder: "asc"},
		},
		{
			name:     "unknown sort column",
			in:       models.AuditLogFilter{Page: -1, Limit: 5, SortBy: "payload", SearchUsername: "  ana "},
			expected: models.AuditLogFilter{Page: 1, Limit: 5, SortBy: "createdAt", SortOrder: "desc", SearchUsername: "ana"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeFilter(tt.in))
		})
	}
}

func TestAuditService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("returns page with pagination", func(t *testing.T) {
		mockRepo := new(MockAuditRepository)
		logs := []*models.AuditLog{models.NewAuditLog(models.AuditActionCheckSync, "AU")}
		mockRepo.On("List", ctx, models.AuditLogFilter{Page: 2, Limit: 10, SortBy: "createdAt", SortOrder: "desc"}).
			Return(logs, 21, nil)

		service := NewAuditService(mockRepo, zap.NewNop(), DefaultConfig())
		page, err := service.List(ctx, models.AuditLogFilter{Page: 2})
		require.NoError(t, err)
		assert.Len(t, page.Data, 1)
		assert.Equal(t, models.Pagination{Page: 2, Limit: 10, Total: 21, TotalPages: 3}, page.Pagination)
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		mockRepo := new(MockAuditRepository)
		mockRepo.On("List", ctx, mock.Anything).Return(nil, 0, nil)

		service := NewAuditService(mockRepo, zap.NewNop(), DefaultConfig())
		page, err := service.List(ctx, models.AuditLogFilter{})
		require.NoError(t, err)
		assert.NotNil(t, page.Data)
		assert.Equal(t, 0, page.Pagination.TotalPages)
	})

	t.Run("repository failure is internal", func(t *testing.T) {
		mockRepo := new(MockAuditRepository)
		mockRepo.On("List", ctx, mock.Anything).Return(nil, 0, errors.New("boom"))

		service := NewAuditService(mockRepo, zap.NewNop(), DefaultConfig())
		_, err := service.List(ctx, models.AuditLogFilter{})
		assert.True(t, services.IsInternalError(err))
	})

	t.Run("no repository", func(t *testing.T) {
		service := NewAuditService(nil, zap.NewNop(), DefaultConfig(), &recordingSink{})
		_, err := service.List(ctx, models.AuditLogFilter{})
		assert.True(t, services.IsConfigurationError(err))
	})
}
