package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giralibros/giralibros/auth"
	"github.com/giralibros/giralibros/broker"
	"github.com/giralibros/giralibros/config"
	"github.com/giralibros/giralibros/database"
	"github.com/giralibros/giralibros/models"
	"github.com/giralibros/giralibros/observability"
	"github.com/giralibros/giralibros/router"
	"github.com/giralibros/giralibros/worker"
	"github.com/gofiber/fiber/v2"
)

func main() {
	isDev := config.ConfigDefault("APP_ENV", "development") != "production"
	zapLogger, err := observability.InitLogger(isDev)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	db := database.GetDB()

	// Run migrations
	err = database.MigrateModels(
		&models.User{},
		&models.UserProfile{},
		&models.UserLocation{},
		&models.OfferedBook{},
		&models.WantedBook{},
		&models.ExchangeRequest{},
		&models.PendingUpload{},
	)
	if err != nil {
		observability.Log().Fatalw("failed to migrate database", "error", err)
	}

	auth.SetupAuthService()

	// Background sweep for staged photos that never made it onto a book
	sweeper := worker.NewSweeper(&worker.SweeperConfig{
		Broker:   broker.New(db),
		Interval: time.Duration(config.ConfigInt("SWEEP_INTERVAL_MINUTES", 60)) * time.Minute,
		MaxAge:   time.Duration(config.ConfigInt("PHOTO_MAX_AGE_HOURS", 24)) * time.Hour,
	})
	sweeper.Start()

	app := fiber.New(fiber.Config{
		BodyLimit: 8 * 1024 * 1024, // multipart overhead on top of the 5 MiB photo cap
	})

	router.SetupRoutes(app)

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		observability.Log().Info("shutting down")
		sweeper.Stop()
		if err := app.Shutdown(); err != nil {
			observability.Log().Errorw("server shutdown failed", "error", err)
		}
	}()

	port := config.ConfigDefault("PORT", "3000")
	observability.Log().Infow("server listening", "port", port)
	if err := app.Listen(":" + port); err != nil {
		observability.Log().Fatalw("server stopped", "error", err)
	}

	if err := database.CloseDB(); err != nil {
		observability.Log().Errorw("failed to close database", "error", err)
	}
}
