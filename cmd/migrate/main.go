package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/samirrijal/gympass/internal/adapters/postgres"
	"github.com/samirrijal/gympass/internal/pkg/config"
	"github.com/samirrijal/gympass/internal/pkg/logging"
	"github.com/samirrijal/gympass/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down [steps]>")
	}

	cfg, err := config.Load("gympass-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var versions []string
	switch os.Args[1] {
	case "up":
		versions, err = db.Migrate(ctx, migrations.FS)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			steps, err = strconv.Atoi(os.Args[2])
			if err != nil || steps < 1 {
				log.Fatalf("down: steps must be a positive integer, got %q", os.Args[2])
			}
		}
		versions, err = db.Rollback(ctx, migrations.FS, steps)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}

	for _, v := range versions {
		fmt.Printf("OK  %s %s\n", os.Args[1], v)
	}
	if len(versions) == 0 {
		fmt.Println("nothing to do")
	}
}
