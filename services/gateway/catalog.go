package gateway

import (
	"sort"
	"time"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/services/cache"
	"github.com/invopop/jsonschema"
)

// Operation names accepted by the gateway
const (
	OpPushQueue               = "push-queue"
	OpBroadcastExchange       = "broadcast-exchange"
	OpCheckSync               = "check-sync"
	OpNumbersNotInBifrost     = "numbers-not-in-bifrost"
	OpNumbersNotInNumberCache = "numbers-not-in-number-cache"
	OpGenerateSignedURL       = "generate-signed-url"
	OpListPractices           = "list-practices"
	OpGetCallDetails          = "get-call-details"
	OpGetCompleteCallDetails  = "get-complete-call-details"
)

// DefaultCallDetailsTTL is how long complete call details are served from cache
const DefaultCallDetailsTTL = 600 * time.Second

// callDetailsNamespace prefixes cached complete call details
const callDetailsNamespace = "call_details"

// Operation describes one backend operation exposed by the gateway
type Operation struct {
	Name        string
	Method      string
	AuditAction models.AuditAction
	// CacheTTL is zero for operations that are never cached
	CacheTTL time.Duration
	// ReadOnly operations may also be invoked with GET
	ReadOnly bool

	newRequest  func() Request
	newResponse func() Response
	cacheKey    func(region string, req Request) string
	decorate    func(region models.Region, resp Response, now time.Time)
}

// Cacheable reports whether successful responses are cached
func (o *Operation) Cacheable() bool {
	return o.CacheTTL > 0 && o.cacheKey != nil
}

// NewRequest returns an empty request for decoding
func (o *Operation) NewRequest() Request {
	return o.newRequest()
}

// Schema returns the JSON schema of the request body
func (o *Operation) Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	return reflector.Reflect(o.newRequest())
}

// Catalog is the immutable set of known operations
type Catalog struct {
	ops map[string]*Operation
}

// NewCatalog builds the operation catalog. A non-positive ttl uses DefaultCallDetailsTTL.
func NewCatalog(callDetailsTTL time.Duration) *Catalog {
	if callDetailsTTL <= 0 {
		callDetailsTTL = DefaultCallDetailsTTL
	}

	ops := []*Operation{
		{
			Name:        OpPushQueue,
			Method:      "PushToRabbitMQQueue",
			AuditAction: models.AuditActionPushQueue,
			newRequest:  func() Request { return &PushQueueRequest{} },
			newResponse: func() Response { return &PushResponse{} },
		},
		{
			Name:        OpBroadcastExchange,
			Method:      "BroadcastToRabbitMQExchange",
			AuditAction: models.AuditActionBroadcastExchange,
			newRequest:  func() Request { return &BroadcastExchangeRequest{} },
			newResponse: func() Response { return &PushResponse{} },
		},
		{
			Name:        OpCheckSync,
			Method:      "CheckSync",
			AuditAction: models.AuditActionCheckSync,
			newRequest:  func() Request { return &CheckSyncRequest{} },
			newResponse: func() Response { return &CheckSyncResponse{} },
		},
		{
			Name:        OpNumbersNotInBifrost,
			Method:      "GetNumbersNotInBifrost",
			AuditAction: models.AuditActionNumbersNotInBifrost,
			newRequest:  func() Request { return &NumbersNotInBifrostRequest{} },
			newResponse: func() Response { return &NumbersResponse{} },
		},
		{
			Name:        OpNumbersNotInNumberCache,
			Method:      "GetNumbersNotInNumberCache",
			AuditAction: models.AuditActionNumbersNotInCache,
			ReadOnly:    true,
			newRequest:  func() Request { return &NumbersNotInNumberCacheRequest{} },
			newResponse: func() Response { return &NumbersResponse{} },
		},
		{
			Name:        OpGenerateSignedURL,
			Method:      "GenerateSignedURL",
			AuditAction: models.AuditActionGenerateSignedURL,
			newRequest:  func() Request { return &GenerateSignedURLRequest{} },
			newResponse: func() Response { return &GenerateSignedURLResponse{} },
		},
		{
			Name:        OpListPractices,
			Method:      "ListPractices",
			AuditAction: models.AuditActionListPractices,
			ReadOnly:    true,
			newRequest:  func() Request { return &ListPracticesRequest{} },
			newResponse: func() Response { return &ListPracticesResponse{} },
		},
		{
			Name:        OpGetCallDetails,
			Method:      "GetCallDetails",
			AuditAction: models.AuditActionGetCallDetails,
			newRequest:  func() Request { return &GetCallDetailsRequest{} },
			newResponse: func() Response { return &GetCallDetailsResponse{} },
			decorate: func(region models.Region, resp Response, now time.Time) {
				if r, ok := resp.(*GetCallDetailsResponse); ok {
					attachExploreURL(region, r, now)
				}
			},
		},
		{
			Name:        OpGetCompleteCallDetails,
			Method:      "GetCompleteCallDetails",
			AuditAction: models.AuditActionExportCallDetails,
			CacheTTL:    callDetailsTTL,
			newRequest:  func() Request { return &GetCompleteCallDetailsRequest{} },
			newResponse: func() Response { return &GetCompleteCallDetailsResponse{} },
			cacheKey: func(region string, req Request) string {
				r := req.(*GetCompleteCallDetailsRequest)
				return cache.Key(region, callDetailsNamespace, r.CallID, r.PracticeID)
			},
		},
	}

	c := &Catalog{ops: make(map[string]*Operation, len(ops))}
	for _, op := range ops {
		c.ops[op.Name] = op
	}
	return c
}

// Lookup returns the operation with the given name
func (c *Catalog) Lookup(name string) (*Operation, bool) {
	op, ok := c.ops[name]
	return op, ok
}

// List returns all operations ordered by name
func (c *Catalog) List() []*Operation {
	out := make([]*Operation, 0, len(c.ops))
	for _, op := range c.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
