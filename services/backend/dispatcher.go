package backend

import (
	"context"
	"fmt"

	"github.com/Ashwin12159/Control-Plane/models"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// ServiceName is the fully qualified backend service every region exposes
const ServiceName = "ops.OperationsService"

// Metadata headers sent with every backend call
const (
	HeaderRegion        = "x-region"
	HeaderClientIP      = "x-client-ip"
	HeaderCorrelationID = "x-correlation-id"
	HeaderAuthorization = "authorization"
)

// FullMethod returns the gRPC method path for a backend method name
func FullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", ServiceName, method)
}

// Metadata carries the per-call headers attached to a dispatch
type Metadata struct {
	Region        string
	ClientIP      string
	CorrelationID string
	Token         string
}

// MD converts the headers into gRPC metadata. The client ip is omitted when unknown.
func (m Metadata) MD() metadata.MD {
	md := metadata.Pairs(
		HeaderRegion, m.Region,
		HeaderCorrelationID, m.CorrelationID,
		HeaderAuthorization, "Bearer "+m.Token,
	)
	if m.ClientIP != "" {
		md.Set(HeaderClientIP, m.ClientIP)
	}
	return md
}

// Dispatcher invokes a backend method in a region
type Dispatcher interface {
	Invoke(ctx context.Context, region models.Region, method string, req, resp interface{}, md Metadata) error
}

// GRPCDispatcher sends JSON-encoded unary calls over pooled connections
type GRPCDispatcher struct {
	clients *ClientRegistry
	logger  *zap.Logger
}

// NewGRPCDispatcher creates a dispatcher over a client registry
func NewGRPCDispatcher(clients *ClientRegistry, logger *zap.Logger) *GRPCDispatcher {
	return &GRPCDispatcher{
		clients: clients,
		logger:  logger,
	}
}

// Invoke performs a single unary call. The caller owns the deadline.
// Errors are classified into upstream domain errors.
func (d *GRPCDispatcher) Invoke(ctx context.Context, region models.Region, method string, req, resp interface{}, md Metadata) error {
	conn, err := d.clients.Conn(region)
	if err != nil {
		return unavailable(region.Code, err)
	}

	ctx = metadata.NewOutgoingContext(ctx, md.MD())
	err = conn.Invoke(ctx, FullMethod(method), req, resp, grpc.CallContentSubtype(codecName))
	if err != nil {
		d.logger.Warn("backend call failed",
			zap.String("region", region.Code),
			zap.String("method", method),
			zap.String("correlation_id", md.CorrelationID),
			zap.Error(err))
		return Classify(region.Code, err)
	}
	return nil
}
