package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is reported by /v1/health. Set at build time with
// -ldflags "-X github.com/samirrijal/gympass/internal/adapters/http.Version=...".
var Version = "dev"

// probe checks one dependency. Optional dependencies only fail readiness
// once they are configured.
type probe struct {
	name     string
	required bool
	check    func(ctx context.Context) error // nil when not configured
}

var errDisconnected = errors.New("disconnected")

func readinessProbes(deps *Dependencies) []probe {
	probes := []probe{
		{name: "database", required: true},
		{name: "nats"},
		{name: "cache"},
	}
	if deps.DB != nil {
		probes[0].check = func(ctx context.Context) error { return deps.DB.Pool.Ping(ctx) }
	}
	if deps.NATS != nil {
		probes[1].check = func(context.Context) error {
			if !deps.NATS.IsConnected() {
				return errDisconnected
			}
			return nil
		}
	}
	if deps.Cache != nil {
		probes[2].check = deps.Cache.Ping
	}
	return probes
}

// HealthHandler is the liveness check. It never touches dependencies.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": Version,
		})
	}
}

// ReadyHandler answers 503 while Postgres is unreachable or a configured
// broker or cache is failing.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	probes := readinessProbes(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string, len(probes))
		ready := true
		for _, p := range probes {
			switch {
			case p.check == nil:
				checks[p.name] = "not configured"
				ready = ready && !p.required
			default:
				if err := p.check(ctx); err != nil {
					checks[p.name] = "error: " + err.Error()
					ready = false
				} else {
					checks[p.name] = "ok"
				}
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
