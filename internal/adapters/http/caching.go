package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type cacheRule struct {
	prefix  string
	exact   bool
	control string
}

// First match wins.
var cacheRules = []cacheRule{
	{prefix: "/v1/health", exact: true, control: "public, max-age=10"},
	{prefix: "/v1/ready", exact: true, control: "no-cache"},
	{prefix: "/docs", exact: true, control: "public, max-age=3600"},
	{prefix: "/docs/", control: "public, max-age=3600"},
	// gym listings only change on CreateGym, which bumps the server cache too
	{prefix: "/v1/gyms/", control: "private, max-age=60"},
	{prefix: "/v1/", control: "private, no-store"},
}

func cacheControlFor(path string) string {
	for _, r := range cacheRules {
		if r.exact && path == r.prefix || !r.exact && strings.HasPrefix(path, r.prefix) {
			return r.control
		}
	}
	return ""
}

// CachingMiddleware sets Cache-Control on GET responses that do not carry one.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodGet || len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}
		if control := cacheControlFor(c.Path()); control != "" {
			c.Set(fiber.HeaderCacheControl, control)
		}
		return err
	}
}
