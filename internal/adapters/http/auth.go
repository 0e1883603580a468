package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/ports"
)

// Claims are the session token claims: sub is the user id.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.StandardClaims
}

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   domain.Role
}

const principalKey ctxKey = "principal"

// PrincipalFromCtx returns the caller stored by RequireAuth.
func PrincipalFromCtx(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  ports.Clock
}

func NewTokenIssuer(secret string, ttl time.Duration, clk ports.Clock) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, clock: clk}
}

// Issue returns a signed token for u.
func (t *TokenIssuer) Issue(u *domain.User) (string, error) {
	now := t.clock.Now()
	claims := Claims{
		Role: u.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   u.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(t.ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies raw and returns its claims.
func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RequireAuth rejects requests without a valid Bearer token and stores the
// caller in the request context.
func RequireAuth(tokens *TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || raw == "" {
			return errUnauthorized(c, "missing bearer token")
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			return errUnauthorized(c, "invalid or expired token")
		}

		p := Principal{UserID: claims.Subject, Role: claims.Role}
		c.Locals(string(principalKey), p)
		c.SetUserContext(context.WithValue(c.UserContext(), principalKey, p))
		return c.Next()
	}
}

// RequireRole allows only callers with role. It must run after RequireAuth.
func RequireRole(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := c.Locals(string(principalKey)).(Principal)
		if !ok || p.Role != role {
			return errForbidden(c, "insufficient permissions")
		}
		return c.Next()
	}
}

func principal(c *fiber.Ctx) Principal {
	p, _ := c.Locals(string(principalKey)).(Principal)
	return p
}
