package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims are the claims carried by a UI session token
type Claims struct {
	jwt.RegisteredClaims
	Name        string   `json:"name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// ParseRole maps a role claim onto a known role. Anything that is not a
// super admin spelling is an ordinary user.
func ParseRole(role string) models.Role {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(role), "-", "_"))
	if normalized == string(models.RoleSuperAdmin) || normalized == "superadmin" {
		return models.RoleSuperAdmin
	}
	return models.RoleUser
}

// ToPrincipal converts validated claims into the principal the core works with
func (c *Claims) ToPrincipal() (*models.Principal, error) {
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return models.NewPrincipal(c.Subject, c.Name, c.Email, ParseRole(c.Role), c.Permissions...), nil
}

// ClaimsFor builds session claims for a principal
func ClaimsFor(p *models.Principal) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: p.ID},
		Name:             p.DisplayName,
		Email:            p.Email,
		Role:             string(p.Role),
		Permissions:      p.PermissionList(),
	}
}
