package handlers

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"virtual-campus/logger"
	"virtual-campus/middleware"
	"virtual-campus/models"
	"virtual-campus/services"
)

func SetupDashboardRoutes(app *fiber.App, auth *services.AuthService, dashboard *services.DashboardService) {
	secured := app.Group("/dashboard", middleware.SessionMiddleware(auth))

	secured.Get("/", func(c *fiber.Ctx) error {
		user := middleware.CurrentUser(c)
		summary, err := dashboard.Summary(c.UserContext(), user)
		if err != nil {
			logger.Warn().Err(err).Str("scope", user.Scope).Msg("[DASHBOARD] summary built from defaults")
		}
		return c.JSON(summary)
	})

	secured.Get("/export.csv", func(c *fiber.Ctx) error {
		user := middleware.CurrentUser(c)
		store, err := dashboard.Registry.Store(c.UserContext(), user.Scope)
		if err != nil {
			logger.Warn().Err(err).Str("scope", user.Scope).Msg("[DASHBOARD] exporting defaults")
		}

		var buf bytes.Buffer
		if err := services.ExportCSV(&buf, store.GetAll()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to render export",
				"cause": err.Error(),
			})
		}

		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="badges-%s.csv"`, user.Scope))
		return c.Send(buf.Bytes())
	})
}

func SetupPublicRoutes(app *fiber.App, catalog *models.Catalog) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/catalog", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version": catalog.Version,
			"badges":  catalog.Badges,
		})
	})
}

// SetupAdminRoutes registers operator routes. exporter may be nil when no
// export destination is configured.
func SetupAdminRoutes(app *fiber.App, adminToken string, exporter *services.ExportService) {
	admin := app.Group("/admin", middleware.AdminTokenMiddleware(adminToken))

	admin.Post("/exports", func(c *fiber.Ctx) error {
		if exporter == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "exports are not configured",
			})
		}

		results, err := exporter.ExportAll(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   "some exports failed",
				"cause":   err.Error(),
				"exports": results,
			})
		}
		return c.JSON(fiber.Map{"exports": results})
	})
}
