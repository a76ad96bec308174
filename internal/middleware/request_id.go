package middleware

import (
	contextPkg "DetectionRelay/pkg/context"
	"DetectionRelay/pkg/utils"
	"time"

	"github.com/gofiber/fiber/v2"
)

// newRequestIDMiddleware keeps an incoming X-Request-ID so the proxy and the
// worker log the same id for one upload.
func newRequestIDMiddleware(u utils.IUtils) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(contextPkg.RequestIDHeader)

		if requestID == "" {
			requestID, _ = u.NewULIDFromTimestamp(time.Now())
		}

		c.Locals(contextPkg.RequestIDHeader, requestID)
		c.Set(contextPkg.RequestIDHeader, requestID)

		return c.Next()
	}
}
