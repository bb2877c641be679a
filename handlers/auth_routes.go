package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"virtual-campus/middleware"
	"virtual-campus/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type pointsRequest struct {
	Points *int `json:"points"`
}

func SetupAuthRoutes(app *fiber.App, auth *services.AuthService, registry *services.BadgeRegistry) {
	app.Post("/auth/login", func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
				"cause": err.Error(),
			})
		}

		user, err := auth.Login(c.UserContext(), req.Email, req.Password)
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "failed to create session",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{"token": user.Token, "user": user})
	})

	secured := app.Group("/auth", middleware.SessionMiddleware(auth))

	secured.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(middleware.CurrentUser(c))
	})

	secured.Put("/points", func(c *fiber.Ctx) error {
		var req pointsRequest
		if err := c.BodyParser(&req); err != nil || req.Points == nil || *req.Points < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "points must be a non-negative integer",
			})
		}

		user, err := auth.UpdatePoints(c.UserContext(), middleware.CurrentUser(c).Token, *req.Points)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "failed to update points",
				"cause": err.Error(),
			})
		}
		return c.JSON(user)
	})

	secured.Post("/logout", func(c *fiber.Ctx) error {
		user := middleware.CurrentUser(c)
		if err := auth.Logout(c.UserContext(), user.Token); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "failed to log out",
				"cause": err.Error(),
			})
		}
		registry.Forget(user.Scope)
		return c.JSON(fiber.Map{"message": "logged out"})
	})
}
