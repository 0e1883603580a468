package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/gympass/internal/core/usecases"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type sessionRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterHandler creates a member account.
func RegisterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req registerRequest
		if ok, err := bindJSON(c, &req); !ok {
			return err
		}

		user, err := deps.RegisterUser.Execute(c.UserContext(), usecases.RegisterUserInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
	}
}

// SessionHandler exchanges credentials for a session token.
func SessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req sessionRequest
		if ok, err := bindJSON(c, &req); !ok {
			return err
		}

		user, err := deps.Authenticate.Execute(c.UserContext(), usecases.AuthenticateInput{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return respondError(c, err)
		}

		token, err := deps.Tokens.Issue(user)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"token": token})
	}
}

// ProfileHandler returns the caller's profile.
func ProfileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := deps.UserProfile.Execute(c.UserContext(), usecases.GetUserProfileInput{
			UserID: principal(c).UserID,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"user": user})
	}
}
