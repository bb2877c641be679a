package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"virtual-campus/services"
	"virtual-campus/storage"
)

func sessionApp(t *testing.T) (*fiber.App, string) {
	t.Helper()
	auth := services.NewAuthService(storage.NewMemoryKV(0), 125, false)
	user, err := auth.Login(context.Background(), "ana@example.com", "x")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/me", SessionMiddleware(auth), func(c *fiber.Ctx) error {
		return c.SendString(CurrentUser(c).Email)
	})
	return app, user.Token
}

func TestSessionMiddleware(t *testing.T) {
	app, token := sessionApp(t)

	tests := []struct {
		name   string
		target string
		header string
		status int
	}{
		{"header", "/me", token, fiber.StatusOK},
		{"query", "/me?token=" + token, "", fiber.StatusOK},
		{"missing", "/me", "", fiber.StatusUnauthorized},
		{"unknown", "/me", "nope", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set(SessionHeader, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAdminTokenMiddleware(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }

	app := fiber.New()
	app.Post("/admin", AdminTokenMiddleware("s3cret"), ok)
	app.Post("/disabled", AdminTokenMiddleware(""), ok)

	tests := []struct {
		name   string
		target string
		auth   string
		status int
	}{
		{"valid", "/admin", "Bearer s3cret", fiber.StatusNoContent},
		{"missing", "/admin", "", fiber.StatusUnauthorized},
		{"wrong", "/admin", "Bearer nope", fiber.StatusUnauthorized},
		{"disabled", "/disabled", "Bearer ", fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodPost, tt.target, nil)
			if tt.auth != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.auth)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
