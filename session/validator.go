package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidIssuer is returned when the token issuer is invalid
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrNoSecret is returned when no session secret is configured
	ErrNoSecret = errors.New("session secret not configured")
)

// Config holds configuration for the session Validator
type Config struct {
	Secret string
	Issuer string // Optional; checked when set
	TTL    time.Duration
}

// Validator verifies HS256 session tokens issued to the UI
type Validator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewValidator creates a session token validator
func NewValidator(config Config) *Validator {
	if config.TTL == 0 {
		config.TTL = 8 * time.Hour
	}
	return &Validator{
		secret: []byte(config.Secret),
		issuer: config.Issuer,
		ttl:    config.TTL,
		now:    time.Now,
	}
}

// ValidateToken verifies the token and returns the principal it carries
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*models.Principal, error) {
	if len(v.secret) == 0 {
		return nil, ErrNoSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(v.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidIssuer, v.issuer, claims.Issuer)
	}

	return claims.ToPrincipal()
}

// Sign issues a session token for a principal. Used by tooling and tests;
// the UI's identity provider signs production sessions with the same secret.
func (v *Validator) Sign(p *models.Principal) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}
	claims := ClaimsFor(p)
	now := v.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(v.ttl))
	claims.Issuer = v.issuer
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
