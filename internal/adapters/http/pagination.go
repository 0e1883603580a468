package http

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/gympass/internal/core/domain"
)

// SetPageLinks adds RFC 8288 Link headers for a 1-indexed page holding n
// items. A full page advertises a next link; the store does not report totals.
func SetPageLinks(c *fiber.Ctx, page, n int) {
	base := c.Path()
	query, _ := url.ParseQuery(string(c.Request().URI().QueryString()))

	link := func(p int, rel string) string {
		query.Set("page", fmt.Sprint(p))
		return fmt.Sprintf(`<%s?%s>; rel="%s"`, base, query.Encode(), rel)
	}

	links := []string{link(1, "first")}
	if page > 1 {
		links = append(links, link(page-1, "prev"))
	}
	if n == domain.PageSize {
		links = append(links, link(page+1, "next"))
	}

	c.Set("Link", strings.Join(links, ", "))
}
