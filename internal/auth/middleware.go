package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/complaints-service/internal/domain"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

const (
	identityKey = "auth_identity"
	tokenKey    = "auth_token"
)

// TokenResolver turns a bearer token into the caller's identity.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (domain.Identity, error)
}

// AuthMiddleware validates bearer tokens and loads identities.
type AuthMiddleware struct {
	resolver TokenResolver
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(resolver TokenResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}

	identity, err := m.resolver.ResolveToken(c.UserContext(), token)
	if err != nil {
		return err
	}

	c.Locals(identityKey, identity)
	c.Locals(tokenKey, token)
	return c.Next()
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.NewUnauthenticated("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthenticated("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}

// TokenFromContext returns the raw bearer token of the request.
func TokenFromContext(c *fiber.Ctx) string {
	token, _ := c.Locals(tokenKey).(string)
	return token
}
