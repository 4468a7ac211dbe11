package server

import (
	"snapgram/internal/middleware"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postForm struct {
	Caption  string `json:"caption" form:"caption"`
	Location string `json:"location" form:"location"`
	Tags     string `json:"tags" form:"tags"`
	ImageID  string `json:"image_id" form:"image_id"`
	ImageURL string `json:"image_url" form:"image_url"`
}

type likesRequest struct {
	Likes []string `json:"likes"`
}

// GetRecentPosts handles GET /api/posts
func (s *Server) GetRecentPosts(c *fiber.Ctx) error {
	posts, err := s.postService.GetRecentPosts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetInfinitePosts handles GET /api/posts/infinite?cursor=
func (s *Server) GetInfinitePosts(c *fiber.Ctx) error {
	posts, err := s.postService.GetInfinitePosts(c.UserContext(), c.Query("cursor"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// SearchPosts handles GET /api/posts/search?q=
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	posts, err := s.postService.SearchPosts(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPostByID handles GET /api/posts/:id
func (s *Server) GetPostByID(c *fiber.Ctx) error {
	post, err := s.postService.GetPostByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var form postForm
	if err := parseBody(c, &form); err != nil {
		return respondError(c, err)
	}
	upload, err := s.readUpload(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), middleware.CallerFrom(c), service.CreatePostInput{
		Caption:  form.Caption,
		Location: form.Location,
		Tags:     form.Tags,
		File:     upload,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id. Without a new file the post keeps
// its stored image; image_id, when sent, must name it.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	var form postForm
	if err := parseBody(c, &form); err != nil {
		return respondError(c, err)
	}
	upload, err := s.readUpload(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), middleware.CallerFrom(c), service.UpdatePostInput{
		PostID:   c.Params("id"),
		Caption:  form.Caption,
		Location: form.Location,
		Tags:     form.Tags,
		File:     upload,
		ImageID:  form.ImageID,
		ImageURL: form.ImageURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id?imageId=
func (s *Server) DeletePost(c *fiber.Ctx) error {
	status, err := s.postService.DeletePost(c.UserContext(), middleware.CallerFrom(c), c.Params("id"), c.Query("imageId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// LikePost handles PUT /api/posts/:id/likes. The body carries the full
// likes list, which replaces the stored one.
func (s *Server) LikePost(c *fiber.Ctx) error {
	var req likesRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.Likes == nil {
		req.Likes = []string{}
	}
	post, err := s.postService.LikePost(c.UserContext(), c.Params("id"), req.Likes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// SavePost handles POST /api/posts/:id/saves
func (s *Server) SavePost(c *fiber.Ctx) error {
	save, err := s.postService.SavePost(c.UserContext(), middleware.CallerFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(save)
}

// GetSavedPosts handles GET /api/saves
func (s *Server) GetSavedPosts(c *fiber.Ctx) error {
	saved, err := s.postService.GetSavedPosts(c.UserContext(), middleware.CallerFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(saved)
}

// DeleteSavedPost handles DELETE /api/saves/:id
func (s *Server) DeleteSavedPost(c *fiber.Ctx) error {
	status, err := s.postService.DeleteSavedPost(c.UserContext(), middleware.CallerFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}
