package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"snapgram/internal/filestore"
	"snapgram/internal/id"
	"snapgram/internal/models"
	"snapgram/internal/observability"
)

const (
	DefaultMaxUploadSizeMB = 10
	compensationTimeout    = 10 * time.Second
)

// PostPreview is the rendition stored as a post or profile image URL.
var PostPreview = models.PreviewOptions{
	Width:   2000,
	Height:  2000,
	Gravity: models.GravityTop,
	Quality: 100,
}

// Orphan reasons recorded on snapgram_orphaned_resources_total.
const (
	orphanCompensationFailed = "compensation_failed"
	orphanSupersededFile     = "superseded_delete_failed"
	orphanDeletedPostFile    = "post_delete_file_failed"
	orphanUserCreateFailed   = "user_create_failed"
)

// media runs the file half of a mutation: upload, preview derivation and
// the cleanup of files that end up unreferenced.
type media struct {
	files    filestore.Store
	maxBytes int64
	log      *observability.ServiceLogger
}

func newMedia(files filestore.Store, maxUploadSizeMB int, log *observability.ServiceLogger) *media {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	return &media{files: files, maxBytes: int64(maxUploadSizeMB) * 1024 * 1024, log: log}
}

// validate checks an upload before any store call is made.
func (m *media) validate(up *models.Upload) error {
	if up == nil {
		return nil
	}
	if len(up.Content) == 0 {
		return models.NewValidationError("Uploaded file is empty")
	}
	if int64(len(up.Content)) > m.maxBytes {
		return models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", m.maxBytes/(1024*1024)))
	}
	detected := http.DetectContentType(up.Content)
	if !isAllowedImageMIME(detected) {
		return models.NewValidationError("Invalid image type")
	}
	if provided := normalizeContentType(up.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, detected) {
		return models.NewValidationError("Image content type mismatch")
	}
	return nil
}

// upload stores up and derives its preview. If the preview cannot be
// derived the file is deleted again. When that deletion fails as well the
// returned error lists the file in Orphans.
func (m *media) upload(ctx context.Context, op string, up *models.Upload) (fileID, previewURL string, err error) {
	fileID, err = id.Generate(id.File)
	if err != nil {
		return "", "", models.NewInternalError(err)
	}
	stored := *up
	if stored.ContentType == "" {
		stored.ContentType = http.DetectContentType(stored.Content)
	}

	if _, err := m.files.CreateFile(ctx, fileID, stored); err != nil {
		return "", "", models.NewFileStoreError("Failed to upload file", err)
	}

	previewURL, err = m.files.GetFilePreview(ctx, fileID, PostPreview)
	if err == nil && previewURL == "" {
		err = errors.New("empty preview url")
	}
	if err != nil {
		appErr := models.NewFileStoreError("Failed to derive file preview", err)
		if cerr := m.compensate(ctx, op, fileID); cerr != nil {
			appErr.WithOrphans(fileID)
		}
		return "", "", appErr
	}
	return fileID, previewURL, nil
}

// compensate deletes a file uploaded by a mutation that then failed. It
// runs even when ctx is already cancelled.
func (m *media) compensate(ctx context.Context, op, fileID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	err := m.files.DeleteFile(ctx, fileID)
	m.log.LogCompensation(ctx, op, fileID, err)
	if err != nil {
		observability.CompensationsTotal.WithLabelValues(op, "failed").Inc()
		observability.OrphanedResourcesTotal.WithLabelValues("file", orphanCompensationFailed).Inc()
		return err
	}
	observability.CompensationsTotal.WithLabelValues(op, "ok").Inc()
	return nil
}

// compensateInto runs compensate and records a failure on appErr.
func (m *media) compensateInto(ctx context.Context, op, fileID string, cause error) error {
	cerr := m.compensate(ctx, op, fileID)
	if cerr == nil {
		return cause
	}
	var appErr *models.AppError
	if errors.As(cause, &appErr) {
		return appErr.WithOrphans(fileID)
	}
	return models.NewInternalError(cause).WithOrphans(fileID)
}

// discard deletes a file that is no longer referenced after a successful
// mutation. Failures leave the file orphaned; they are logged and
// counted but never fail the mutation.
func (m *media) discard(ctx context.Context, reason, fileID string) {
	if fileID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	err := m.files.DeleteFile(ctx, fileID)
	if err == nil || errors.Is(err, filestore.ErrNotFound) {
		return
	}
	observability.OrphanedResourcesTotal.WithLabelValues("file", reason).Inc()
	m.log.LogOrphan(ctx, "file", fileID, reason, err)
}

// keptImage resolves the image an update or delete acts on. The stored
// reference is authoritative; a client that names an image must name the
// one the document already holds.
func keptImage(storedID, storedURL, claimedID string) (string, string, error) {
	if claimedID != "" && claimedID != storedID {
		return "", "", models.NewFieldValidationError("image does not belong to this document",
			map[string]string{"image_id": "does not match the current image"})
	}
	return storedID, storedURL, nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}
