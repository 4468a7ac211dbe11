package filestore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"snapgram/internal/models"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary stores files as Cloudinary image assets. Previews are
// transformation URLs, so deriving one never touches the network.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinary connects using a cloudinary:// URL.
func NewCloudinary(cloudinaryURL, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	cld.Config.URL.Secure = true
	return &Cloudinary{cld: cld, folder: strings.Trim(folder, "/")}, nil
}

func (c *Cloudinary) CreateFile(ctx context.Context, fileID string, upload models.Upload) (*models.File, error) {
	overwrite := false
	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(upload.Content), uploader.UploadParams{
		PublicID:     c.publicID(fileID),
		Overwrite:    &overwrite,
		ResourceType: "image",
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload %s: %w", fileID, err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload %s: %s", fileID, resp.Error.Message)
	}

	createdAt := resp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &models.File{
		ID:        fileID,
		Name:      upload.Name,
		MimeType:  upload.ContentType,
		Size:      int64(resp.Bytes),
		CreatedAt: createdAt,
	}, nil
}

func (c *Cloudinary) GetFilePreview(_ context.Context, fileID string, opts models.PreviewOptions) (string, error) {
	img, err := c.cld.Image(c.publicID(fileID))
	if err != nil {
		return "", fmt.Errorf("cloudinary asset %s: %w", fileID, err)
	}
	img.Transformation = previewTransformation(opts)
	u, err := img.String()
	if err != nil {
		return "", fmt.Errorf("cloudinary preview %s: %w", fileID, err)
	}
	return u, nil
}

func (c *Cloudinary) DeleteFile(ctx context.Context, fileID string) error {
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:   c.publicID(fileID),
		Invalidate: boolPtr(true),
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", fileID, err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy %s: %s", fileID, resp.Error.Message)
	}
	switch resp.Result {
	case "ok":
		return nil
	case "not found":
		return ErrNotFound
	default:
		return fmt.Errorf("cloudinary destroy %s: unexpected result %q", fileID, resp.Result)
	}
}

func (c *Cloudinary) publicID(fileID string) string {
	if c.folder == "" {
		return fileID
	}
	return path.Join(c.folder, fileID)
}

// previewTransformation renders opts as a Cloudinary fill transformation.
func previewTransformation(opts models.PreviewOptions) string {
	return fmt.Sprintf("c_fill,g_%s,h_%d,w_%d,q_%d", cloudinaryGravity(opts.Gravity), opts.Height, opts.Width, opts.Quality)
}

func cloudinaryGravity(g models.Gravity) string {
	switch g {
	case models.GravityTop:
		return "north"
	case models.GravityBottom:
		return "south"
	default:
		return "center"
	}
}

func boolPtr(b bool) *bool { return &b }
