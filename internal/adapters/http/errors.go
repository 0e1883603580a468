package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/gympass/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// errForbidden returns a 403 error.
func errForbidden(c *fiber.Ctx, msg string) error {
	return newError(c, 403, "forbidden", msg)
}

// domainErrors maps domain sentinels to HTTP status and code.
var domainErrors = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrResourceNotFound, 404, "not_found"},
	{domain.ErrOutOfRange, 400, "out_of_range"},
	{domain.ErrInvalidCoordinates, 400, "invalid_coordinates"},
	{domain.ErrEmptyTitle, 400, "bad_request"},
	{domain.ErrDuplicateCheckIn, 409, "duplicate_check_in"},
	{domain.ErrLateValidation, 409, "late_validation"},
	{domain.ErrAlreadyValidated, 409, "already_validated"},
	{domain.ErrAlreadyExists, 409, "conflict"},
	{domain.ErrInvalidCredentials, 400, "invalid_credentials"},
}

// respondError writes the response for an error returned by a use case.
// Unknown errors are logged and reported as 500 without details.
func respondError(c *fiber.Ctx, err error) error {
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			return newError(c, m.status, m.code, err.Error())
		}
	}

	LoggerFromCtx(c.UserContext()).Error("request failed",
		"method", c.Method(), "path", c.Path(), "error", err)
	return errInternal(c, "internal server error")
}
