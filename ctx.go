package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the AdminClaims in the given context
func WithClaimsContext(r context.Context, claims *AdminClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AdminClaims from the standard context
func GetClaims(ctx context.Context) (*AdminClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*AdminClaims)
	return raw, ok && raw != nil
}

// ClaimsFromFiber reads the claims the access guard stored on the request
func ClaimsFromFiber(c *fiber.Ctx) (*AdminClaims, bool) {
	return GetClaims(c.UserContext())
}

// ActingAdmin returns the username of the admin behind the request, falling
// back to the subject id
func ActingAdmin(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok {
		return ""
	}
	if claims.Username != "" {
		return claims.Username
	}
	return claims.UserID()
}
