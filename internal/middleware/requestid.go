package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an identifier that the audit log and
// error responses can correlate on. A caller-supplied X-Request-ID is kept
// as is so upstream proxies can trace a request end to end.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		generated := reqID == ""
		if generated {
			reqID = uuid.NewString()
		}

		c.Locals(requestIDHeader, reqID)
		if generated {
			c.Set(requestIDHeader, reqID)
		}

		return c.Next()
	}
}
