package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_flow_app_go/config"
	"lead_flow_app_go/db"
	"lead_flow_app_go/handlers"
	"lead_flow_app_go/logger"
	"lead_flow_app_go/middleware"
	"lead_flow_app_go/models"
	"lead_flow_app_go/services"
	"lead_flow_app_go/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if err := logger.Initialize(cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.L.Sync()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.DatabaseURL, cfg.Environment); err != nil {
		logger.L.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Lead{},
		&models.LeadActivity{},
		&models.CallbackReminder{},
		&models.VerificationRecord{},
		&models.InsuredPerson{},
		&models.VerificationDocument{},
		&models.VerificationRemark{},
		&models.AuditLog{},
	); err != nil {
		logger.L.Fatal("failed to run migrations", "error", err)
	}

	services.InitializeStorage(cfg)
	services.InitializeProjectionCache(cfg)
	defer services.CloseProjectionCache()
	services.InitializeEvents(cfg)
	defer services.Events.Close()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CSPNonce())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	// Static files
	e.Static("/static", "static")

	handlers.RegisterRoutes(e)

	// Callback reminders
	go func() {
		ticker := time.NewTicker(cfg.ReminderInterval)
		defer ticker.Stop()

		for range ticker.C {
			if sent := jobs.SendCallbackReminders(db.DB, cfg); sent > 0 {
				logger.L.Info("callback reminders sent", "count", sent)
			}
		}
	}()

	// Start background cleanup jobs (runs every hour)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := services.CleanupExpiredSessions(db.DB); err != nil {
				logger.L.Error("error cleaning up expired sessions", "error", err)
			}
			services.Monitor.Prune()
		}
	}()

	// Start server
	go func() {
		logger.L.Info("server starting", "port", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Fatal("failed to start server", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("server shutdown failed", "error", err)
	}
}
