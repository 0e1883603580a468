package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/gympass/internal/adapters/http"
	natsadapter "github.com/samirrijal/gympass/internal/adapters/nats"
	"github.com/samirrijal/gympass/internal/adapters/postgres"
	"github.com/samirrijal/gympass/internal/adapters/valkey"
	"github.com/samirrijal/gympass/internal/core/ports"
	"github.com/samirrijal/gympass/internal/core/usecases"
	"github.com/samirrijal/gympass/internal/pkg/config"
	"github.com/samirrijal/gympass/internal/pkg/logging"
	"github.com/samirrijal/gympass/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("gympass-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	loc, _ := cfg.CheckIn.Location() // validated by config.Load
	clk := clock.New()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache (optional: gym lookups fall through to Postgres without it)
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS (optional: check-ins succeed without event delivery)
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// Repos
	gymRepo := postgres.NewGymRepo(db, clk)
	checkInRepo := postgres.NewCheckInRepo(db, clk, loc)
	userRepo := postgres.NewUserRepo(db, clk)

	deps := &http.Dependencies{
		RegisterUser:    usecases.NewRegisterUser(userRepo, cfg.Auth.BcryptCost),
		Authenticate:    usecases.NewAuthenticate(userRepo),
		UserProfile:     usecases.NewGetUserProfile(userRepo),
		CreateGym:       usecases.NewCreateGym(gymRepo, cacheSvc, clk),
		SearchGyms:      usecases.NewSearchGyms(gymRepo, cacheSvc),
		NearbyGyms:      usecases.NewFetchNearbyGyms(gymRepo, cacheSvc),
		CreateCheckIn:   usecases.NewCreateCheckIn(checkInRepo, gymRepo, clk, publisher),
		ValidateCheckIn: usecases.NewValidateCheckIn(checkInRepo, clk, publisher),
		CheckInHistory:  usecases.NewFetchCheckInHistory(checkInRepo),
		UserMetrics:     usecases.NewGetUserMetrics(checkInRepo),
		Tokens:          http.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, clk),
		NATS:            natsConn,
		DB:              db,
		Cache:           cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "GymPass API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "timezone", loc.String())
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
