// Package gateway holds the HTTP middleware shared by the public site and the dashboard:
// sessions, roles, request ids, logging, metrics, rate limits and error rendering.
package gateway

import (
	"strings"

	"github.com/adonese/folio/apperr"
	"github.com/gofiber/fiber/v2"
)

const SessionCookie = "folio_session"

const (
	localUserID = "user_id"
	localEmail  = "email"
	localRole   = "role"
)

// AuthMiddleware is a JWT authorization middleware. The token is read from a Bearer
// header, a bare Authorization header, or the session cookie, in that order.
func (j *JWTAuth) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := TokenFromRequest(c)
		if token == "" {
			return apperr.WithMessage(apperr.ErrUnauthorized, "missing session token")
		}

		claims, err := j.VerifyJWT(token)
		if err != nil {
			if IsExpired(err) {
				return apperr.ErrSessionExpired
			}
			return apperr.ErrSessionMalformed
		}

		BindSession(c, claims.UserID, claims.Email, claims.Role)
		return c.Next()
	}
}

func TokenFromRequest(c *fiber.Ctx) string {
	if h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return h
	}
	return strings.TrimSpace(c.Cookies(SessionCookie))
}

// BindSession sets the identity later middleware and handlers read. The dashboard calls it
// again with the stored account so roles follow the database rather than the token.
func BindSession(c *fiber.Ctx, userID int64, email, role string) {
	c.Locals(localUserID, userID)
	c.Locals(localEmail, email)
	c.Locals(localRole, role)
}

// RequireRole lets the request through only when the session role is one of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := RoleFromCtx(c)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return apperr.WithMessage(apperr.ErrForbidden, "insufficient role")
	}
}

func UserIDFromCtx(c *fiber.Ctx) int64 {
	if v, ok := c.Locals(localUserID).(int64); ok {
		return v
	}
	return 0
}

func RoleFromCtx(c *fiber.Ctx) string {
	if v, ok := c.Locals(localRole).(string); ok {
		return v
	}
	return ""
}

func EmailFromCtx(c *fiber.Ctx) string {
	if v, ok := c.Locals(localEmail).(string); ok {
		return v
	}
	return ""
}
