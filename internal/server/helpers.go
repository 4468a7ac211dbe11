package server

import (
	"fmt"
	"io"
	"strings"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

const uploadField = "file"

// respondError writes err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.HTTPStatus(err), err)
}

// parseBody decodes a JSON or form body into dst.
func parseBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// readUpload returns the file attached under the "file" field of a
// multipart request, or nil when the request carries none.
func (s *Server) readUpload(c *fiber.Ctx) (*models.Upload, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError("Invalid multipart form")
	}
	headers := form.File[uploadField]
	if len(headers) == 0 {
		return nil, nil
	}
	fh := headers[0]

	if limit := s.maxUploadBytes(); fh.Size > limit {
		return nil, models.NewValidationError(fmt.Sprintf("File exceeds %d MB", limit/(1024*1024)))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("Unreadable upload")
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, s.maxUploadBytes()+1))
	if err != nil {
		return nil, models.NewValidationError("Unreadable upload")
	}
	return &models.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.config.MaxUploadSizeMB
	if mb <= 0 {
		mb = service.DefaultMaxUploadSizeMB
	}
	return int64(mb) * 1024 * 1024
}
