package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/gympass/internal/adapters/postgres"
	"github.com/samirrijal/gympass/internal/adapters/valkey"
	"github.com/samirrijal/gympass/internal/core/ports"
	"github.com/samirrijal/gympass/internal/core/usecases"
	"github.com/samirrijal/gympass/internal/pkg/config"
	"github.com/samirrijal/gympass/internal/pkg/logging"
)

// Manifest lists the gyms to import.
type Manifest struct {
	Gyms []GymEntry `json:"gyms"`
}

type GymEntry struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

const maxConcurrentInserts = 8

func main() {
	cfg, err := config.Load("gympass-seed")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, "text")

	manifestPath := "gyms.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}
	manifest, err := loadManifest(manifestPath)
	if err != nil {
		log.Fatalf("manifest: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Without the cache, API replicas serve stale gym pages until the TTL expires.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, cached gym lookups will not be invalidated", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	clk := clock.New()
	createGym := usecases.NewCreateGym(postgres.NewGymRepo(db, clk), cacheSvc, clk)

	start := time.Now()
	created, failed := seed(ctx, createGym, manifest.Gyms)
	slog.Info("seed finished",
		"created", created,
		"failed", failed,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	if failed > 0 {
		os.Exit(1)
	}
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

// seed creates every gym through the CreateGym use case, so each entry gets
// the same validation as POST /v1/gyms.
func seed(ctx context.Context, createGym *usecases.CreateGym, gyms []GymEntry) (created, failed int) {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, maxConcurrentInserts)
	)

	for i, g := range gyms {
		wg.Add(1)
		go func(i int, g GymEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			gym, err := createGym.Execute(ctx, usecases.CreateGymInput{
				Title:       g.Title,
				Description: g.Description,
				Phone:       g.Phone,
				Latitude:    g.Latitude,
				Longitude:   g.Longitude,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				slog.Error("gym not created", "index", i, "title", g.Title, "error", err)
				return
			}
			created++
			slog.Debug("gym created", "id", gym.ID, "title", gym.Title)
		}(i, g)
	}

	wg.Wait()
	return created, failed
}
