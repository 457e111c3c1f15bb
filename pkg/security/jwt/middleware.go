package jwt

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// LocalsClaims is the c.Locals key holding *Claims of an authenticated request.
const LocalsClaims = "claims"

// LocalsUserID is the c.Locals key holding the subject (user id) as string.
const LocalsUserID = "userId"

// NewAuthMiddleware returns a Fiber middleware that validates Bearer JWT (HS256).
// On success sets the claims and the user id into c.Locals.
func NewAuthMiddleware(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := bearerToken(c.Get(fiber.HeaderAuthorization))
		if tokenStr == "" {
			return deny(c, "No token, authorization denied")
		}
		claims, err := v.Parse(tokenStr)
		if err != nil {
			return deny(c, "Token is not valid")
		}
		c.Locals(LocalsClaims, claims)
		c.Locals(LocalsUserID, claims.ID)
		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by the middleware, if any.
func ClaimsFrom(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(LocalsClaims).(*Claims)
	return claims, ok
}

// bearerToken supports both "Bearer <token>" and "<token>" (no prefix).
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	// Fallback: treat entire header as token (for non-standard clients)
	return header
}

func deny(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": message})
}
