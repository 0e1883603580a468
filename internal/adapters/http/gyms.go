package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/usecases"
)

type createGymRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Phone       *string  `json:"phone" validate:"omitempty,max=40"`
	Latitude    *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type searchGymsQuery struct {
	Q    string `json:"q" validate:"max=200"`
	Page int    `json:"page"`
}

type nearbyGymsQuery struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// CreateGymHandler registers a gym. Admin only.
func CreateGymHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createGymRequest
		if ok, err := bindJSON(c, &req); !ok {
			return err
		}

		gym, err := deps.CreateGym.Execute(c.UserContext(), usecases.CreateGymInput{
			Title:       req.Title,
			Description: req.Description,
			Phone:       req.Phone,
			Latitude:    *req.Latitude,
			Longitude:   *req.Longitude,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"gym": gym})
	}
}

// SearchGymsHandler finds gyms by title, 20 per page.
func SearchGymsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := searchGymsQuery{Q: c.Query("q"), Page: c.QueryInt("page", 1)}
		if err := validate.Struct(q); err != nil {
			return errValidation(c, err)
		}

		gyms, err := deps.SearchGyms.Execute(c.UserContext(), usecases.SearchGymsInput{
			Query: q.Q,
			Page:  q.Page,
		})
		if err != nil {
			return respondError(c, err)
		}

		SetPageLinks(c, domain.NormalizePage(q.Page), len(gyms))
		return c.JSON(fiber.Map{"gyms": gyms})
	}
}

// NearbyGymsHandler lists gyms within 10 km of the given point.
func NearbyGymsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q nearbyGymsQuery
		var err error
		if q.Latitude, err = queryFloat(c, "latitude"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if q.Longitude, err = queryFloat(c, "longitude"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return errValidation(c, err)
		}

		gyms, err := deps.NearbyGyms.Execute(c.UserContext(), usecases.FetchNearbyGymsInput{
			UserLatitude:  q.Latitude,
			UserLongitude: q.Longitude,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"gyms": gyms})
	}
}
