package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"learning-portal-system/handlers"
	"learning-portal-system/models"
	"learning-portal-system/services"
	"learning-portal-system/utils"
	"learning-portal-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := utils.LoadConfig()

	logger, err := utils.NewLogger(cfg.Env)
	if err != nil {
		log.Fatal("failed to build logger:", err)
	}
	defer logger.Sync()

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to open local store:", err)
	}

	if err := db.AutoMigrate(&models.StoreEntry{}); err != nil {
		log.Fatal("failed to migrate local store:", err)
	}

	if cfg.ContentBucket != "" {
		if err := utils.InitObjectStore(); err != nil {
			log.Fatal("failed to initialize object store client:", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogService := services.NewCatalogService(logger)
	if err := catalogService.Load(ctx, cfg); err != nil {
		// With no usable catalog there is nothing to serve.
		log.Fatal("failed to load course content:", err)
	}

	searchService := services.NewSearchService(logger)
	searchService.BuildIndex(catalogService.Catalog())

	localStore := services.NewLocalStore(db, logger)
	progressService := services.NewProgressService(
		localStore, logger, clockwork.NewRealClock(), services.DefaultXPWeights, cfg.DefaultCourseID)
	recommendationService := services.NewRecommendationService(progressService)

	supabaseClient := services.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, logger)
	syncService := services.NewSyncService(supabaseClient, progressService, logger)

	pushWorker := workers.NewCompletionPushWorker(syncService, progressService.Events(), logger)
	go pushWorker.Start(ctx)

	sched, err := services.StartMaintenanceScheduler(progressService, logger)
	if err != nil {
		log.Fatal("failed to start maintenance scheduler:", err)
	}

	app := fiber.New(fiber.Config{
		AppName: "learning-portal-system",
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Session-Token",
	}))

	handlers.SetupCatalogRoutes(app, catalogService, progressService, recommendationService)
	handlers.SetupSearchRoutes(app, searchService)
	handlers.SetupProgressRoutes(app, catalogService, progressService, recommendationService,
		services.AllowAll, cfg.AutoCompleteOnView)
	handlers.SetupAuthRoutes(app, syncService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Errorw("server error", "error", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Println("✅ Completion push worker running")
	log.Println("✅ Maintenance scheduler running")

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		logger.Warnw("server shutdown failed", "error", err)
	}
	if err := sched.Shutdown(); err != nil {
		logger.Warnw("scheduler shutdown failed", "error", err)
	}
	progressService.Flush()
}
