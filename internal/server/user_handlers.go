package server

import (
	"snapgram/internal/middleware"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

type profileForm struct {
	Name     string `json:"name" form:"name"`
	Bio      string `json:"bio" form:"bio"`
	ImageID  string `json:"image_id" form:"image_id"`
	ImageURL string `json:"image_url" form:"image_url"`
}

// GetCurrentUser handles GET /api/users/me
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	user, err := s.userService.GetCurrentUser(c.UserContext(), middleware.CallerFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUsers handles GET /api/users?limit=
func (s *Server) GetUsers(c *fiber.Ctx) error {
	users, err := s.userService.GetUsers(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetUserByID handles GET /api/users/:id
func (s *Server) GetUserByID(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	posts, err := s.postService.GetUserPosts(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// UpdateUserProfile handles PUT /api/users/:id. The body is JSON or a
// multipart form with an optional "file" part.
func (s *Server) UpdateUserProfile(c *fiber.Ctx) error {
	var form profileForm
	if err := parseBody(c, &form); err != nil {
		return respondError(c, err)
	}
	upload, err := s.readUpload(c)
	if err != nil {
		return respondError(c, err)
	}

	user, err := s.userService.UpdateUserProfile(c.UserContext(), middleware.CallerFrom(c), service.UpdateProfileInput{
		UserID:   c.Params("id"),
		Name:     form.Name,
		Bio:      form.Bio,
		File:     upload,
		ImageID:  form.ImageID,
		ImageURL: form.ImageURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
