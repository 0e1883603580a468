package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookgo/clock"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/gympass/internal/adapters/nats"
	"github.com/samirrijal/gympass/internal/adapters/postgres"
	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/ports"
	"github.com/samirrijal/gympass/internal/core/usecases"
	"github.com/samirrijal/gympass/internal/pkg/config"
	"github.com/samirrijal/gympass/internal/pkg/logging"
	"github.com/samirrijal/gympass/internal/pkg/telemetry"
	"github.com/samirrijal/gympass/internal/workflows"
)

const (
	sweepInterval = time.Minute
	sweepLookback = time.Hour
)

func main() {
	cfg, err := config.Load("gympass-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	loc, _ := cfg.CheckIn.Location()
	clk := clock.New()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	checkIns := postgres.NewCheckInRepo(db, clk, loc)

	// Expiry events are best effort; the worker still runs without NATS.
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats publisher unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Connect to Temporal
	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer tc.Close()

	w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.CheckInWindowWorkflow)
	w.RegisterActivity(&workflows.CheckInActivities{
		Expire: usecases.NewExpireCheckIn(checkIns, clk, publisher),
	})

	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()

	scheduler := workflows.NewScheduler(tc, cfg.Temporal.TaskQueue)

	// Created events start the window workflow as soon as a check-in exists.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable, relying on sweeps", "error", err)
	} else {
		defer sub.Close()
		err = sub.SubscribeCheckInsCreated(ctx, func(ctx context.Context, c *domain.CheckIn) error {
			return scheduler.Schedule(ctx, c)
		})
		if err != nil {
			log.Fatalf("subscribe: %v", err)
		}
	}

	sweeper := workflows.NewSweeper(checkIns, scheduler, clk, sweepLookback)
	go sweeper.Run(ctx, sweepInterval)

	slog.Info("check-in window worker started", "task_queue", cfg.Temporal.TaskQueue, "namespace", cfg.Temporal.Namespace)
	<-ctx.Done()
	slog.Info("worker stopping")
}
