package backend

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/Ashwin12159/Control-Plane/models"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// TransportConfig selects how backend connections are secured
type TransportConfig struct {
	Insecure   bool
	CAFile     string
	ServerName string
}

// DialOptions builds the transport credentials for backend connections
func (c TransportConfig) DialOptions() ([]grpc.DialOption, error) {
	if c.Insecure {
		return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, nil
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12, ServerName: c.ServerName}
	if c.CAFile != "" {
		caBytes, err := os.ReadFile(filepath.Clean(c.CAFile))
		if err != nil {
			return nil, fmt.Errorf("read backend CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, fmt.Errorf("parse backend CA file: no valid certificates")
		}
		cfg.RootCAs = pool
	}
	return []grpc.DialOption{grpc.WithTransportCredentials(credentials.NewTLS(cfg))}, nil
}

// ErrRegistryClosed is returned after Close
var ErrRegistryClosed = errors.New("client registry closed")

// RegistryOption customizes a ClientRegistry
type RegistryOption func(*ClientRegistry)

// WithDialOptions appends dial options to every connection
func WithDialOptions(opts ...grpc.DialOption) RegistryOption {
	return func(r *ClientRegistry) {
		r.dialOptions = append(r.dialOptions, opts...)
	}
}

// WithTarget overrides how a region is turned into a dial target
func WithTarget(fn func(models.Region) string) RegistryOption {
	return func(r *ClientRegistry) {
		r.target = fn
	}
}

// ClientRegistry holds one connection per region, created on first use
// and reused by every later call until Close.
type ClientRegistry struct {
	mu          sync.RWMutex
	conns       map[string]*grpc.ClientConn
	dialOptions []grpc.DialOption
	target      func(models.Region) string
	closed      bool
	logger      *zap.Logger
}

// NewClientRegistry creates an empty registry
func NewClientRegistry(transport TransportConfig, logger *zap.Logger, opts ...RegistryOption) (*ClientRegistry, error) {
	dialOptions, err := transport.DialOptions()
	if err != nil {
		return nil, err
	}
	r := &ClientRegistry{
		conns:       make(map[string]*grpc.ClientConn),
		dialOptions: dialOptions,
		target:      DefaultTarget,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// DefaultTarget is host:port of the region backend
func DefaultTarget(region models.Region) string {
	return net.JoinHostPort(region.BackendHost, strconv.Itoa(region.BackendPort))
}

// Conn returns the region's connection, creating it if needed
func (r *ClientRegistry) Conn(region models.Region) (*grpc.ClientConn, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrRegistryClosed
	}
	conn, ok := r.conns[region.Code]
	r.mu.RUnlock()
	if ok {
		return conn, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if conn, ok := r.conns[region.Code]; ok {
		return conn, nil
	}

	target := r.target(region)
	conn, err := grpc.NewClient(target, r.dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("create client for region %s: %w", region.Code, err)
	}
	r.conns[region.Code] = conn
	r.logger.Info("backend client created",
		zap.String("region", region.Code),
		zap.String("target", target))
	return conn, nil
}

// Len returns the number of open connections
func (r *ClientRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close closes every connection. Later calls to Conn fail.
func (r *ClientRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for code, conn := range r.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close client %s: %w", code, err))
		}
		delete(r.conns, code)
	}
	return errors.Join(errs...)
}
