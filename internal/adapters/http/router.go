package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness, outside the request timeout
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	auth := RequireAuth(deps.Tokens)
	admin := RequireRole(domain.RoleAdmin)
	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	// REST API v1
	v1 := app.Group("/v1")
	v1.Post("/users", withTimeout(RegisterHandler(deps)))
	v1.Post("/sessions", withTimeout(SessionHandler(deps)))
	v1.Get("/me", auth, withTimeout(ProfileHandler(deps)))

	v1.Get("/gyms/search", auth, withTimeout(SearchGymsHandler(deps)))
	v1.Get("/gyms/nearby", auth, withTimeout(NearbyGymsHandler(deps)))
	v1.Post("/gyms", auth, admin, withTimeout(CreateGymHandler(deps)))

	v1.Post("/gyms/:gymId/check-ins", auth, withTimeout(CreateCheckInHandler(deps)))
	v1.Get("/check-ins/history", auth, withTimeout(CheckInHistoryHandler(deps)))
	v1.Get("/check-ins/metrics", auth, withTimeout(CheckInMetricsHandler(deps)))
	v1.Patch("/check-ins/:checkInId/validate", auth, admin, withTimeout(ValidateCheckInHandler(deps)))

	// GraphQL
	app.Post("/graphql", auth, withTimeout(GraphQLHandler(deps)))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket live check-in feed for front-desk staff
	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if !websocket.IsWebSocketUpgrade(c) {
				return fiber.ErrUpgradeRequired
			}
			claims, err := deps.Tokens.Parse(c.Query("token"))
			if err != nil {
				return errUnauthorized(c, "invalid or expired token")
			}
			if claims.Role != domain.RoleAdmin {
				return errForbidden(c, "insufficient permissions")
			}
			return c.Next()
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
