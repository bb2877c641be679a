package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"virtual-campus/logger"
	"virtual-campus/middleware"
	"virtual-campus/models"
	"virtual-campus/services"
)

func SetupBadgeRoutes(
	app *fiber.App,
	auth *services.AuthService,
	registry *services.BadgeRegistry,
	notifier *services.UnlockNotifier,
	feed *services.UnlockFeed,
) {
	badges := app.Group("/badges", middleware.SessionMiddleware(auth))

	badges.Get("/", func(c *fiber.Ctx) error {
		store := storeFor(c, registry)

		status := c.Query("status")
		if status != "" && status != "unlocked" && status != "locked" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "status must be 'unlocked' or 'locked'",
			})
		}
		category := models.BadgeCategory(c.Query("category"))
		if category != "" && !category.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown category",
				"cause": string(category),
			})
		}

		list := store.Search(c.Query("q")).Filter(func(b models.Badge) bool {
			switch {
			case status == "unlocked" && !b.Unlocked, status == "locked" && b.Unlocked:
				return false
			case category != "" && b.Category != category:
				return false
			}
			return true
		})

		return c.JSON(fiber.Map{
			"badges":      list,
			"totalPoints": store.GetTotalPoints(),
			"progress":    store.GetProgressPercentage(),
		})
	})

	badges.Get("/points", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"totalPoints": storeFor(c, registry).GetTotalPoints()})
	})

	badges.Get("/progress", func(c *fiber.Ctx) error {
		store := storeFor(c, registry)
		all := store.GetAll()
		return c.JSON(fiber.Map{
			"progress": store.GetProgressPercentage(),
			"unlocked": len(all.Unlocked()),
			"total":    len(all),
		})
	})

	badges.Get("/feed", func(c *fiber.Ctx) error {
		user := middleware.CurrentUser(c)
		events, err := feed.List(c.UserContext(), user.Scope)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "failed to read unlock feed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"events": events})
	})

	badges.Get("/stream", func(c *fiber.Ctx) error {
		return notifier.StreamUnlocksSSE(c, middleware.CurrentUser(c).Scope)
	})

	badges.Post("/reset", func(c *fiber.Ctx) error {
		all, err := storeFor(c, registry).Reset(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":  "badges were reset but could not be saved",
				"cause":  err.Error(),
				"badges": all,
			})
		}
		return c.JSON(fiber.Map{"badges": all})
	})

	badges.Get("/:id", func(c *fiber.Ctx) error {
		badge, ok := storeFor(c, registry).GetByID(c.Params("id"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "badge not found",
				"cause": c.Params("id"),
			})
		}
		return c.JSON(badge)
	})

	badges.Post("/:id/unlock", func(c *fiber.Ctx) error {
		store := storeFor(c, registry)
		id := c.Params("id")

		unlocked, err := store.Unlock(c.UserContext(), id)
		switch {
		case errors.Is(err, services.ErrBadgeNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "badge not found",
				"cause": id,
			})
		case err != nil && !unlocked:
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"unlocked": false,
				"error":    "badges could not be loaded",
				"cause":    err.Error(),
			})
		case err != nil:
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"unlocked": true,
				"error":    "badge unlocked but could not be saved",
				"cause":    err.Error(),
			})
		}

		badge, _ := store.GetByID(id)
		return c.JSON(fiber.Map{
			"unlocked":    unlocked,
			"badge":       badge,
			"totalPoints": store.GetTotalPoints(),
		})
	})
}

// storeFor returns the badge store of the session user. A failed first load
// is logged and the store serves its defaults.
func storeFor(c *fiber.Ctx, registry *services.BadgeRegistry) *services.BadgeStore {
	scope := middleware.CurrentUser(c).Scope
	store, err := registry.Store(c.UserContext(), scope)
	if err != nil {
		logger.Warn().Err(err).Str("scope", scope).Msg("[BADGES] serving defaults after load error")
	}
	return store
}
