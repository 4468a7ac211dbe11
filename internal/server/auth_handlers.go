package server

import (
	"snapgram/internal/middleware"
	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SignInResponse carries the bearer token with its session.
type SignInResponse struct {
	Token   string          `json:"token"`
	Session *models.Session `json:"session"`
}

// SignUp handles POST /api/auth/sign-up
func (s *Server) SignUp(c *fiber.Ctx) error {
	var in service.SignUpInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	user, err := s.userService.CreateUserAccount(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// SignIn handles POST /api/auth/sign-in
func (s *Server) SignIn(c *fiber.Ctx) error {
	var in service.SignInInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	session, err := s.userService.SignIn(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(SignInResponse{Token: session.Token, Session: session})
}

// SignOut handles POST /api/auth/sign-out
func (s *Server) SignOut(c *fiber.Ctx) error {
	status, err := s.userService.SignOut(c.UserContext(), middleware.CallerFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}
