package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/usecases"
)

type createCheckInRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// CreateCheckInHandler checks the caller in at :gymId.
func CreateCheckInHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createCheckInRequest
		if ok, err := bindJSON(c, &req); !ok {
			return err
		}

		checkIn, err := deps.CreateCheckIn.Execute(c.UserContext(), usecases.CreateCheckInInput{
			UserID:        principal(c).UserID,
			GymID:         c.Params("gymId"),
			UserLatitude:  *req.Latitude,
			UserLongitude: *req.Longitude,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"check_in": checkIn})
	}
}

// ValidateCheckInHandler validates :checkInId. Admin only.
func ValidateCheckInHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		checkIn, err := deps.ValidateCheckIn.Execute(c.UserContext(), usecases.ValidateCheckInInput{
			CheckInID: c.Params("checkInId"),
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"check_in": checkIn})
	}
}

// CheckInHistoryHandler lists the caller's check-ins, newest first.
func CheckInHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := domain.NormalizePage(c.QueryInt("page", 1))

		checkIns, err := deps.CheckInHistory.Execute(c.UserContext(), usecases.FetchCheckInHistoryInput{
			UserID: principal(c).UserID,
			Page:   page,
		})
		if err != nil {
			return respondError(c, err)
		}

		SetPageLinks(c, page, len(checkIns))
		return c.JSON(fiber.Map{"check_ins": checkIns})
	}
}

// CheckInMetricsHandler returns the caller's check-in count.
func CheckInMetricsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := deps.UserMetrics.Execute(c.UserContext(), usecases.GetUserMetricsInput{
			UserID: principal(c).UserID,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(m)
	}
}
