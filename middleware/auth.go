package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"virtual-campus/logger"
	"virtual-campus/models"
	"virtual-campus/services"
)

const (
	SessionHeader = "X-Session-Token"
	userLocalsKey = "user"
)

// SessionMiddleware resolves the session token to a user and attaches it to the context.
// The token is read from X-Session-Token, or from the `token` query parameter
// for EventSource clients that cannot set headers.
func SessionMiddleware(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Get(SessionHeader))
		if token == "" {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing session token",
			})
		}

		user, err := auth.CurrentUser(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, services.ErrUnauthenticated) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid or expired session",
				})
			}
			logger.Error().Err(err).Str("path", c.Path()).Msg("[SESSION] lookup failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "session storage unavailable",
				"cause": err.Error(),
			})
		}

		c.Locals(userLocalsKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user attached by SessionMiddleware, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalsKey).(*models.User)
	return user
}
