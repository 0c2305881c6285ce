package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	AuditDatabase *DatabaseConfig // Optional: separate DB for audit logs. When nil, audit uses main DB.
	Session       SessionConfig
	Regions       RegionsConfig
	Backend       BackendConfig
	Credentials   CredentialsConfig
	Cache         CacheConfig
	Authz         AuthzConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// SessionConfig holds the settings used to verify UI session tokens
type SessionConfig struct {
	Secret string
	Issuer string
}

// RegionsConfig controls where the region table comes from
type RegionsConfig struct {
	File      string // Optional YAML file replacing the built-in table
	EnvPrefix string // <PREFIX>_<CODE>_HOST / _PORT overrides
}

// BackendConfig holds regional backend transport settings
type BackendConfig struct {
	Insecure        bool // Plaintext transport, development only
	CAFile          string
	ServerName      string
	DispatchTimeout time.Duration
}

// CredentialsConfig holds per-region credential settings
type CredentialsConfig struct {
	TTL          time.Duration
	SecretPrefix string
}

// CacheConfig holds response cache configuration
type CacheConfig struct {
	RedisEnabled   bool
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisTLS       bool
	OpTimeout      time.Duration
	CallDetailsTTL time.Duration
	MemoryMaxItems int
	// CleanupInterval is how often expired in-memory entries are swept
	CleanupInterval time.Duration
}

// AuthzConfig holds authorization policy settings
type AuthzConfig struct {
	UnmappedPolicy string // deny or allow
}

// AuditConfig holds audit recorder settings
type AuditConfig struct {
	BufferSize   int
	WorkerCount  int
	WriteTimeout time.Duration
	StopTimeout  time.Duration
	KafkaBrokers []string
	KafkaTopic   string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel          string
	LogFormat         string // json or console
	ServiceName       string
	TracingEnabled    bool
	TracingEndpoint   string
	TracingInsecure   bool
	TracingSampleRate float64
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://*"}),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Database:      loadDatabaseConfig(),
		AuditDatabase: loadAuditDatabaseConfig(),
		Session: SessionConfig{
			Secret: getEnv("SESSION_JWT_SECRET", ""),
			Issuer: getEnv("SESSION_JWT_ISSUER", ""),
		},
		Regions: RegionsConfig{
			File:      getEnv("REGIONS_FILE", ""),
			EnvPrefix: getEnv("REGIONS_ENV_PREFIX", "GRPC"),
		},
		Backend: BackendConfig{
			Insecure:        getEnvAsBool("BACKEND_INSECURE", false),
			CAFile:          getEnv("BACKEND_TLS_CA_FILE", ""),
			ServerName:      getEnv("BACKEND_TLS_SERVER_NAME", ""),
			DispatchTimeout: getEnvAsDuration("BACKEND_DISPATCH_TIMEOUT", 30*time.Second),
		},
		Credentials: CredentialsConfig{
			TTL:          getEnvAsDuration("CREDENTIAL_TTL", 300*time.Second),
			SecretPrefix: getEnv("CREDENTIAL_SECRET_PREFIX", "JWT_SECRET"),
		},
		Cache: CacheConfig{
			RedisEnabled:    getEnvAsBool("REDIS_ENABLED", true),
			RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:   getEnv("REDIS_PASSWORD", ""),
			RedisDB:         getEnvAsInt("REDIS_DB", 0),
			RedisTLS:        getEnvAsBool("REDIS_TLS", false),
			OpTimeout:       getEnvAsDuration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
			CallDetailsTTL:  getEnvAsDuration("CACHE_CALL_DETAILS_TTL", 600*time.Second),
			MemoryMaxItems:  getEnvAsInt("CACHE_MEMORY_MAX_ITEMS", 10000),
			CleanupInterval: getEnvAsDuration("CACHE_CLEANUP_INTERVAL", time.Minute),
		},
		Authz: AuthzConfig{
			UnmappedPolicy: strings.ToLower(getEnv("AUTHZ_UNMAPPED_POLICY", "deny")),
		},
		Audit: AuditConfig{
			BufferSize:   getEnvAsInt("AUDIT_BUFFER_SIZE", 10000),
			WorkerCount:  getEnvAsInt("AUDIT_WORKERS", 5),
			WriteTimeout: getEnvAsDuration("AUDIT_WRITE_TIMEOUT", 5*time.Second),
			StopTimeout:  getEnvAsDuration("AUDIT_STOP_TIMEOUT", 10*time.Second),
			KafkaBrokers: getEnvAsList("KAFKA_BROKERS", nil),
			KafkaTopic:   getEnv("KAFKA_AUDIT_TOPIC", "control-plane.audit"),
		},
		Observability: ObservabilityConfig{
			LogLevel:          getEnv("LOG_LEVEL", "info"),
			LogFormat:         getEnv("LOG_FORMAT", "json"),
			ServiceName:       getEnv("OTEL_SERVICE_NAME", "control-plane-gateway"),
			TracingEnabled:    getEnvAsBool("TRACING_ENABLED", false),
			TracingEndpoint:   getEnv("TRACING_ENDPOINT", ""),
			TracingInsecure:   getEnvAsBool("TRACING_INSECURE", false),
			TracingSampleRate: getEnvAsFloat("TRACING_SAMPLE_RATE", 0.1),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Database validation (DATABASE_URL or DB_* vars)
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.IsProduction() {
		if c.Session.Secret == "" {
			return fmt.Errorf("session secret is required in production")
		}
		if c.Backend.Insecure {
			return fmt.Errorf("insecure backend transport is not allowed in production")
		}
	}

	if c.Credentials.TTL <= 0 {
		return fmt.Errorf("credential TTL must be positive")
	}
	if c.Backend.DispatchTimeout <= 0 {
		return fmt.Errorf("backend dispatch timeout must be positive")
	}

	switch c.Authz.UnmappedPolicy {
	case "deny", "allow":
	default:
		return fmt.Errorf("authz unmapped policy must be deny or allow, got %q", c.Authz.UnmappedPolicy)
	}

	if c.Audit.WorkerCount < 1 {
		return fmt.Errorf("audit worker count must be at least 1")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// EffectiveDispatchTimeout bounds the dispatch deadline by the credential lifetime
func (c *Config) EffectiveDispatchTimeout() time.Duration {
	if c.Credentials.TTL < c.Backend.DispatchTimeout {
		return c.Credentials.TTL
	}
	return c.Backend.DispatchTimeout
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "controlplane"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "controlplane"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// loadAuditDatabaseConfig loads audit DB config from DATABASE_URL_AUDIT.
// Returns nil when not set (audit uses main DB).
func loadAuditDatabaseConfig() *DatabaseConfig {
	dbURL := getEnv("DATABASE_URL_AUDIT", "")
	if dbURL == "" {
		return nil
	}
	return &DatabaseConfig{
		ConnectionString: dbURL,
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
