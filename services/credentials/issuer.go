package credentials

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/services"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DefaultTTL is the default lifetime of a backend credential
const DefaultTTL = 300 * time.Second

// SecretSource resolves a region's signing secret by reference
type SecretSource interface {
	Secret(ref string) (string, bool)
}

// EnvSecrets reads secrets from the process environment
type EnvSecrets struct{}

// Secret returns the value of the environment variable named ref
func (EnvSecrets) Secret(ref string) (string, bool) {
	v, ok := os.LookupEnv(ref)
	return v, ok && v != ""
}

// StaticSecrets is a fixed secret table, mostly useful in tests and tools
type StaticSecrets map[string]string

// Secret returns the configured secret for ref
func (s StaticSecrets) Secret(ref string) (string, bool) {
	v, ok := s[ref]
	return v, ok && v != ""
}

// Claims are the claims carried by a backend credential
type Claims struct {
	jwt.RegisteredClaims
	RequestID string `json:"requestId,omitempty"`
	Region    string `json:"region"`
}

// Credential is a minted token and its validity window.
// It belongs to exactly one gateway call and is never reused.
type Credential struct {
	Token         string
	SubjectID     string
	Region        string
	CorrelationID string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// Issuer mints and verifies per-region HS256 credentials
type Issuer struct {
	secrets SecretSource
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewIssuer creates an issuer. A non-positive ttl falls back to DefaultTTL.
func NewIssuer(secrets SecretSource, ttl time.Duration, logger *zap.Logger) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if secrets == nil {
		secrets = EnvSecrets{}
	}
	return &Issuer{
		secrets: secrets,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// TTL returns the configured credential lifetime
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a credential for the principal scoped to the region
func (i *Issuer) Issue(region models.Region, principalID, correlationID string) (*Credential, error) {
	return i.IssueWithTTL(region, principalID, correlationID, i.ttl)
}

// IssueWithTTL mints a credential with a lifetime no longer than the configured TTL.
// A missing secret fails closed with a configuration error.
func (i *Issuer) IssueWithTTL(region models.Region, principalID, correlationID string, ttl time.Duration) (*Credential, error) {
	secret, err := i.secretFor(region)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 || ttl > i.ttl {
		ttl = i.ttl
	}

	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		RequestID: correlationID,
		Region:    region.Code,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return nil, services.NewConfigurationError("failed to sign credential", err)
	}

	i.logger.Debug("credential issued",
		zap.String("region", region.Code),
		zap.String("sub", principalID),
		zap.String("correlation_id", correlationID),
		zap.Time("expires_at", expiresAt))

	return &Credential{
		Token:         token,
		SubjectID:     principalID,
		Region:        region.Code,
		CorrelationID: correlationID,
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
	}, nil
}

// Verify parses a token with the region's own secret.
// A token minted for another region fails even when the claims are identical.
func (i *Issuer) Verify(region models.Region, tokenString string) (*Claims, error) {
	secret, err := i.secretFor(region)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, services.NewDomainError(services.ErrorTypeUnauthorized, "credential expired", err)
		}
		return nil, services.NewDomainError(services.ErrorTypeUnauthorized, "invalid credential", err)
	}
	if !token.Valid {
		return nil, services.ErrInvalidToken
	}
	if claims.Region != region.Code {
		return nil, services.NewDomainError(services.ErrorTypeUnauthorized,
			fmt.Sprintf("credential region mismatch: %s", claims.Region), nil)
	}

	return claims, nil
}

func (i *Issuer) secretFor(region models.Region) (string, error) {
	if region.SecretRef == "" {
		return "", services.NewConfigurationError(
			fmt.Sprintf("no credential secret reference configured for region %s", region.Code), nil)
	}
	secret, ok := i.secrets.Secret(region.SecretRef)
	if !ok {
		i.logger.Error("credential secret missing",
			zap.String("region", region.Code),
			zap.String("secret_ref", region.SecretRef))
		return "", services.NewConfigurationError(
			fmt.Sprintf("JWT secret for region %s is not configured", region.Code), services.ErrMissingSecret)
	}
	return secret, nil
}
