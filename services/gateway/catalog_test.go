package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/services/authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	catalog := NewCatalog(0)

	t.Run("every operation has a permission", func(t *testing.T) {
		perms := authz.DefaultOperationPermissions()
		ops := catalog.List()
		require.Len(t, ops, len(perms))
		for _, op := range ops {
			_, ok := perms[op.Name]
			assert.True(t, ok, op.Name)
			assert.NotEmpty(t, op.Method, op.Name)
			assert.NotEmpty(t, op.AuditAction, op.Name)
		}
	})

	t.Run("listing is ordered by name", func(t *testing.T) {
		ops := catalog.List()
		for i := 1; i < len(ops); i++ {
			assert.Less(t, ops[i-1].Name, ops[i].Name)
		}
	})

	t.Run("only complete call details are cached", func(t *testing.T) {
		for _, op := range catalog.List() {
			assert.Equal(t, op.Name == OpGetCompleteCallDetails, op.Cacheable(), op.Name)
		}
		op, ok := catalog.Lookup(OpGetCompleteCallDetails)
		require.True(t, ok)
		assert.Equal(t, DefaultCallDetailsTTL, op.CacheTTL)
		assert.Equal(t, models.AuditActionExportCallDetails, op.AuditAction)
	})

	t.Run("configured ttl", func(t *testing.T) {
		op, _ := NewCatalog(time.Minute).Lookup(OpGetCompleteCallDetails)
		assert.Equal(t, time.Minute, op.CacheTTL)
	})

	t.Run("cache key includes region and practice", func(t *testing.T) {
		op, _ := catalog.Lookup(OpGetCompleteCallDetails)
		req := &GetCompleteCallDetailsRequest{CallID: "CA123", PracticeID: "P1"}
		assert.Equal(t, "call_details:AU:CA123:P1", op.cacheKey("AU", req))
		assert.NotEqual(t, op.cacheKey("AU", req), op.cacheKey("US", req))

		joined := &GetCompleteCallDetailsRequest{CallID: "CA123_P1"}
		assert.NotEqual(t, op.cacheKey("AU", req), op.cacheKey("AU", joined))
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, ok := catalog.Lookup("delete-everything")
		assert.False(t, ok)
	})
}

func TestOperation_Schema(t *testing.T) {
	op, ok := NewCatalog(0).Lookup(OpGetCallDetails)
	require.True(t, ok)

	schema := op.Schema()
	require.NotNil(t, schema)
	assert.ElementsMatch(t, []string{"practiceId", "callId"}, schema.Required)

	data, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"callId"`)
}

func TestPayloadString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "string", raw: `"{\"a\":1}"`, want: `{"a":1}`, ok: true},
		{name: "object", raw: `{ "a" : [1, 2] }`, want: `{"a":[1,2]}`, ok: true},
		{name: "number", raw: `42`, want: `42`, ok: true},
		{name: "empty string", raw: `""`, want: ``, ok: false},
		{name: "null", raw: `null`, want: `null`, ok: false},
		{name: "missing", raw: ``, want: ``, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, hasPayload(json.RawMessage(tt.raw)))
			if tt.ok {
				assert.Equal(t, tt.want, payloadString(json.RawMessage(tt.raw)))
			}
		})
	}
}

func TestCheckSyncRequest_Check(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "device", body: `{"checkType":{"device":{"deviceMake":"Polycom","sipAccount":"1"}}}`},
		{name: "location", body: `{"checkType":{"location":{"locationId":"L1"}}}`},
		{name: "practice", body: `{"checkType":{"practice":{"practiceId":"P1"}}}`},
		{name: "all", body: `{"checkType":{"allBifrost":{"confirm":true}}}`},
		{name: "none", body: `{"checkType":{}}`, wantErr: true},
		{name: "two", body: `{"checkType":{"device":{"deviceMake":"Polycom","sipAccount":"1"},"allBifrost":{"confirm":true}}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CheckSyncRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			err := req.Check()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeRequest_DeviceMake(t *testing.T) {
	op, _ := NewCatalog(0).Lookup(OpCheckSync)

	_, err := decodeRequest(op, json.RawMessage(`{"checkType":{"device":{"deviceMake":"Cisco","sipAccount":"1"}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deviceMake must be one of: Yealink Polycom")
}
