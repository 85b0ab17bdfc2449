package gateway

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	maxRequestIDLen = 64

	localRequestID = "request_id"
)

// RequestID propagates X-Request-ID. A missing, oversized or non-printable id is replaced
// with a fresh uuid so log lines stay greppable.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(RequestIDHeader))
		if !printableToken(id, maxRequestIDLen) {
			id = uuid.NewString()
		}
		c.Locals(localRequestID, id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

// printableToken accepts 1..max visible ASCII characters.
func printableToken(s string, max int) bool {
	if s == "" || len(s) > max {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r > '~' }) < 0
}

func RequestIDFromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}
