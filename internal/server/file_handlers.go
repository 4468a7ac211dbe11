package server

import (
	"errors"
	"fmt"

	"snapgram/internal/filestore"
	"snapgram/internal/models"

	"github.com/gofiber/fiber/v2"
)

const maxPreviewSide = 4000

// GetFilePreview handles GET /api/files/:id/preview for the disk backend.
// Other backends serve previews from their own URLs.
func (s *Server) GetFilePreview(c *fiber.Ctx) error {
	if s.disk == nil {
		return respondError(c, models.NewNotFoundError("File", c.Params("id")))
	}
	opts, err := previewOptions(c)
	if err != nil {
		return respondError(c, err)
	}

	path, err := s.disk.OpenPreview(c.UserContext(), c.Params("id"), opts)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return respondError(c, models.NewNotFoundError("File", c.Params("id")))
		}
		return respondError(c, models.NewFileStoreError("Failed to render preview", err))
	}

	c.Set(fiber.HeaderContentType, "image/webp")
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.SendFile(path)
}

func previewOptions(c *fiber.Ctx) (models.PreviewOptions, error) {
	opts := models.PreviewOptions{
		Width:   c.QueryInt("width", 0),
		Height:  c.QueryInt("height", 0),
		Gravity: models.Gravity(c.Query("gravity", string(models.GravityCenter))),
		Quality: c.QueryInt("quality", 100),
	}

	fields := map[string]string{}
	if opts.Width <= 0 || opts.Width > maxPreviewSide {
		fields["width"] = fmt.Sprintf("must be between 1 and %d", maxPreviewSide)
	}
	if opts.Height <= 0 || opts.Height > maxPreviewSide {
		fields["height"] = fmt.Sprintf("must be between 1 and %d", maxPreviewSide)
	}
	switch opts.Gravity {
	case models.GravityCenter, models.GravityTop, models.GravityBottom:
	default:
		fields["gravity"] = "must be one of center, top, bottom"
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		fields["quality"] = "must be between 1 and 100"
	}
	if len(fields) > 0 {
		return opts, models.NewFieldValidationError("invalid preview parameters", fields)
	}
	return opts, nil
}
