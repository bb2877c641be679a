package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"virtual-campus/config"
	"virtual-campus/handlers"
	"virtual-campus/logger"
	"virtual-campus/models"
	"virtual-campus/services"
	"virtual-campus/storage"
	"virtual-campus/utils"
	"virtual-campus/workers"
)

func main() {
	hasDotEnv := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.Env)
	if !hasDotEnv {
		logger.Warn().Msg("No .env file found, reading environment variables directly")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := models.LoadCatalog(cfg.Catalog)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load badge catalog")
	}

	kv, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to open storage")
	}
	defer kv.Close()

	notifier := services.NewUnlockNotifier(0)
	registry := services.NewBadgeRegistry(kv, catalog,
		services.WithPublisher(notifier),
		services.WithReconcile(cfg.BadgeReconcile),
		services.WithResetOnCatalogChange(cfg.ResetOnCatalogChange),
	)
	authService := services.NewAuthService(kv, cfg.InitialPoints, cfg.BadgeScope == config.ScopeGlobal)
	dashboardService := services.NewDashboardService(registry)
	feed := services.NewUnlockFeed(kv, services.DefaultFeedLimit)

	feedWorker := workers.NewUnlockFeedWorker(notifier, feed)
	go feedWorker.Start(ctx)

	exporter, sched := startExports(ctx, cfg, registry)
	if sched != nil {
		defer func() { _ = sched.Shutdown() }()
	}

	app := fiber.New(fiber.Config{
		AppName:      "virtual-campus",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-Session-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Content-Disposition, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupPublicRoutes(app, catalog)
	handlers.SetupAuthRoutes(app, authService, registry)
	handlers.SetupBadgeRoutes(app, authService, registry, notifier, feed)
	handlers.SetupDashboardRoutes(app, authService, dashboardService)
	handlers.SetupAdminRoutes(app, cfg.AdminToken, exporter)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error().Err(err).Msg("Server error")
			stop()
		}
	}()

	logger.Info().
		Str("port", cfg.Port).
		Str("storage", cfg.StorageDriver).
		Str("catalog", catalog.Version).
		Str("scope", cfg.BadgeScope).
		Strs("origins", cfg.AllowedOrigins).
		Msg("✅ Virtual campus running")

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

// startExports wires the export destination: R2 when configured, a local
// directory when EXPORT_DIR is set, otherwise exports stay disabled.
func startExports(ctx context.Context, cfg *config.Config, registry *services.BadgeRegistry) (*services.ExportService, gocron.Scheduler) {
	var uploader services.Uploader
	switch {
	case cfg.R2Enabled():
		r2, err := utils.NewR2Uploader(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize R2 client")
		}
		uploader = r2
	case cfg.ExportDir != "":
		uploader = &utils.DirUploader{Root: cfg.ExportDir}
	default:
		logger.Warn().Msg("[EXPORT] neither R2 nor EXPORT_DIR configured, exports disabled")
		return nil, nil
	}

	exporter := services.NewExportService(registry, uploader)
	sched, err := exporter.StartExportScheduler(ctx, cfg.ExportInterval)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start export scheduler")
	}
	return exporter, sched
}
