package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/services"
	"github.com/Ashwin12159/Control-Plane/services/backend"
	"github.com/Ashwin12159/Control-Plane/services/credentials"
	"github.com/Ashwin12159/Control-Plane/utils"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/Ashwin12159/Control-Plane/services/gateway"

// DefaultDispatchTimeout bounds a backend call when none is configured
const DefaultDispatchTimeout = 30 * time.Second

// Authorizer checks a session principal against an operation
type Authorizer interface {
	AuthorizeOperation(p *models.Principal, operation string) error
}

// RegionResolver looks up regions by code
type RegionResolver interface {
	Resolve(code string) (models.Region, error)
}

// CredentialIssuer mints per-call backend credentials
type CredentialIssuer interface {
	Issue(region models.Region, principalID, correlationID string) (*credentials.Credential, error)
	TTL() time.Duration
}

// ResponseCache stores serialized responses. It never fails the caller.
type ResponseCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) bool
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration)
}

// AuditRecorder writes audit entries without failing or blocking the caller
type AuditRecorder interface {
	Record(ctx context.Context, action models.AuditAction, region string, principal *models.Principal, correlationID string, payload interface{})
}

// CallEnvelope is one inbound operation request
type CallEnvelope struct {
	Operation     string
	Region        string
	Payload       json.RawMessage
	CorrelationID string
	ClientIP      string
}

// Result is the outcome of a successful call
type Result struct {
	Operation     string
	Region        string
	CorrelationID string
	Response      Response
	Cached        bool
}

// Gateway authorizes and dispatches operations to regional backends
type Gateway struct {
	catalog         *Catalog
	authorizer      Authorizer
	cache           ResponseCache
	regions         RegionResolver
	issuer          CredentialIssuer
	dispatcher      backend.Dispatcher
	audit           AuditRecorder
	dispatchTimeout time.Duration
	tracer          trace.Tracer
	logger          *zap.Logger
	now             func() time.Time
}

// NewGateway creates a gateway. The dispatch deadline is the smaller of
// dispatchTimeout and the credential lifetime.
func NewGateway(
	catalog *Catalog,
	authorizer Authorizer,
	cache ResponseCache,
	regions RegionResolver,
	issuer CredentialIssuer,
	dispatcher backend.Dispatcher,
	audit AuditRecorder,
	dispatchTimeout time.Duration,
	logger *zap.Logger,
) *Gateway {
	if dispatchTimeout <= 0 {
		dispatchTimeout = DefaultDispatchTimeout
	}
	if ttl := issuer.TTL(); ttl > 0 && ttl < dispatchTimeout {
		dispatchTimeout = ttl
	}
	return &Gateway{
		catalog:         catalog,
		authorizer:      authorizer,
		cache:           cache,
		regions:         regions,
		issuer:          issuer,
		dispatcher:      dispatcher,
		audit:           audit,
		dispatchTimeout: dispatchTimeout,
		tracer:          otel.Tracer(tracerName),
		logger:          logger,
		now:             time.Now,
	}
}

// Catalog returns the operations served by the gateway
func (g *Gateway) Catalog() *Catalog {
	return g.catalog
}

// DispatchTimeout returns the effective backend deadline
func (g *Gateway) DispatchTimeout() time.Duration {
	return g.dispatchTimeout
}

// Execute runs one call: validate, authorize, cache check, resolve region,
// issue credential, dispatch, classify, cache populate, audit.
// Every authorized call that misses the cache is audited, whatever its outcome.
func (g *Gateway) Execute(ctx context.Context, env CallEnvelope, principal *models.Principal) (*Result, error) {
	if env.CorrelationID == "" {
		env.CorrelationID = uuid.NewString()
	}

	ctx, span := g.tracer.Start(ctx, "gateway."+env.Operation, trace.WithAttributes(
		attribute.String("gateway.operation", env.Operation),
		attribute.String("gateway.region", env.Region),
		attribute.String("gateway.correlation_id", env.CorrelationID),
	))
	defer span.End()

	start := g.now()
	result, err := g.execute(ctx, env, principal)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, services.GetErrorMessage(err))
		g.logger.Info("gateway call failed",
			zap.String("operation", env.Operation),
			zap.String("region", env.Region),
			zap.String("correlation_id", env.CorrelationID),
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.Duration("duration", g.now().Sub(start)),
			zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Bool("gateway.cache_hit", result.Cached))
	g.logger.Info("gateway call completed",
		zap.String("operation", env.Operation),
		zap.String("region", env.Region),
		zap.String("correlation_id", env.CorrelationID),
		zap.Bool("cached", result.Cached),
		zap.Duration("duration", g.now().Sub(start)))
	return result, nil
}

func (g *Gateway) execute(ctx context.Context, env CallEnvelope, principal *models.Principal) (*Result, error) {
	op, ok := g.catalog.Lookup(env.Operation)
	if !ok {
		return nil, services.NewDomainError(services.ErrorTypeNotFound,
			fmt.Sprintf("Unknown operation: %s", env.Operation), nil)
	}

	// Step 1: validate payload
	req, err := decodeRequest(op, env.Payload)
	if err != nil {
		return nil, err
	}

	// Step 2: authorize
	if err := g.authorizer.AuthorizeOperation(principal, op.Name); err != nil {
		return nil, err
	}

	// Step 3: cache check
	var cacheKey string
	if op.Cacheable() {
		cacheKey = op.cacheKey(env.Region, req)
		cached := op.newResponse()
		if g.cache.GetJSON(ctx, cacheKey, cached) {
			g.logger.Debug("serving response from cache",
				zap.String("operation", op.Name),
				zap.String("key", cacheKey),
				zap.String("correlation_id", env.CorrelationID))
			return g.result(op, env, cached, true), nil
		}
	}

	resp, err := g.dispatch(ctx, op, env, req, principal)

	// Step 8: cache populate
	if err == nil && cacheKey != "" {
		g.cache.SetJSON(ctx, cacheKey, resp, op.CacheTTL)
	}

	// Step 9: audit, whatever the outcome of steps 4-7
	g.audit.Record(context.WithoutCancel(ctx), op.AuditAction, env.Region, principal, env.CorrelationID, req.AuditPayload())
	if err != nil {
		return nil, err
	}

	return g.result(op, env, resp, false), nil
}

func (g *Gateway) dispatch(ctx context.Context, op *Operation, env CallEnvelope, req Request, principal *models.Principal) (Response, error) {
	// Step 4: resolve region
	region, err := g.regions.Resolve(env.Region)
	if err != nil {
		return nil, err
	}

	// Step 5: issue credential
	cred, err := g.issuer.Issue(region, subject(principal), env.CorrelationID)
	if err != nil {
		return nil, err
	}

	// Step 6: dispatch
	callCtx, cancel := context.WithTimeout(ctx, g.dispatchTimeout)
	defer cancel()

	resp := op.newResponse()
	md := backend.Metadata{
		Region:        region.Code,
		ClientIP:      env.ClientIP,
		CorrelationID: env.CorrelationID,
		Token:         cred.Token,
	}
	if err := g.dispatcher.Invoke(callCtx, region, op.Method, req.Backend(), resp, md); err != nil {
		return nil, classify(region.Code, err)
	}

	// Step 7: classify the backend's own verdict
	if st := resp.status(); !st.Success {
		msg := st.Message
		if msg == "" {
			msg = fmt.Sprintf("%s failed", op.Name)
		}
		return nil, services.NewDomainError(services.ErrorTypeUpstreamRejected, msg, services.ErrUpstreamRejected).
			WithDetail("operation", op.Name)
	}

	if op.decorate != nil {
		op.decorate(region, resp, g.now())
	}
	return resp, nil
}

func (g *Gateway) result(op *Operation, env CallEnvelope, resp Response, cached bool) *Result {
	return &Result{
		Operation:     op.Name,
		Region:        env.Region,
		CorrelationID: env.CorrelationID,
		Response:      resp,
		Cached:        cached,
	}
}

func subject(p *models.Principal) string {
	if p == nil {
		return ""
	}
	return p.ID
}

// classify keeps errors the dispatcher already classified
func classify(region string, err error) error {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return backend.Classify(region, err)
}

// decodeRequest parses and validates an operation payload.
// An empty body is treated as an empty object.
func decodeRequest(op *Operation, payload json.RawMessage) (Request, error) {
	req := op.NewRequest()

	body := bytes.TrimSpace(payload)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, services.NewValidationError("Invalid request body")
	}

	if err := utils.ValidateStruct(req); err != nil {
		verr := services.NewValidationError(err.Error())
		if fields := utils.GetValidationFields(err); fields != nil {
			verr.WithDetail("fields", fields)
		}
		return nil, verr
	}
	if c, ok := req.(checker); ok {
		if err := c.Check(); err != nil {
			return nil, err
		}
	}
	return req, nil
}
