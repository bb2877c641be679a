package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"virtual-campus/logger"
)

// AdminTokenMiddleware guards operator routes with a static bearer token.
// With no token configured every request is rejected.
func AdminTokenMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		logger.Warn().Msg("[ADMIN_AUTH] ADMIN_TOKEN is not set, admin routes are disabled")
	}

	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin routes are disabled",
			})
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "admin token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			logger.Warn().Str("path", c.Path()).Msg("[ADMIN_AUTH] invalid token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid admin token",
			})
		}

		return c.Next()
	}
}
