package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sony/gobreaker"

	httpapi "github.com/i474232898/air-quality-explorer/internal/api/http"
	"github.com/i474232898/air-quality-explorer/internal/backend"
	"github.com/i474232898/air-quality-explorer/internal/config"
	"github.com/i474232898/air-quality-explorer/internal/continents"
	"github.com/i474232898/air-quality-explorer/internal/dashboard"
	"github.com/i474232898/air-quality-explorer/internal/fetch"
	"github.com/i474232898/air-quality-explorer/internal/monitor"
	"github.com/i474232898/air-quality-explorer/internal/scheduler"
	"github.com/i474232898/air-quality-explorer/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound backend calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var opts []fetch.Option
	if cfg.BreakerEnabled {
		opts = append(opts, fetch.WithBreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "backend",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})))
	}
	fetcher := fetch.New(httpClient, cfg.FetchConfig(), opts...)

	// Station localities are looked up only when a Google key is configured.
	client := backend.NewClient(fetcher, cfg.CacheTTL, backend.NewGoogleLocalities(cfg.GeocoderAPIKey))

	sessions := dashboard.NewSessions(dashboard.Deps{Backend: client}, cfg.SessionTTL)

	catalog, err := continents.Load()
	if err != nil {
		log.Fatalf("failed to load continent facts: %v", err)
	}

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	service := monitor.NewService(memStore, client, cfg.Watches)

	// Scheduler that periodically polls watched sensors and refreshes countries.
	sched := scheduler.New(cfg.PollInterval, service, client)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "air-quality-explorer",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// A single backend call may spend 30s in backoff.
		WriteTimeout: 2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "air-quality-explorer",
			"sessions": sessions.Len(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Services{
		Sessions:   sessions,
		Monitor:    service,
		Continents: catalog,
	})

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s, backend %s", cfg.Port, cfg.BackendBaseURL)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
