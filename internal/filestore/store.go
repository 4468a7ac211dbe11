// Package filestore stores uploaded image files and derives preview URLs
// for them. Backends: Cloudinary, local disk and memory.
package filestore

import (
	"context"
	"errors"

	"snapgram/internal/models"
	"snapgram/internal/observability"
)

// ErrNotFound is returned when a file id does not resolve.
var ErrNotFound = errors.New("file not found")

// Store is the file API used by the service layer.
type Store interface {
	// CreateFile stores upload under fileID.
	CreateFile(ctx context.Context, fileID string, upload models.Upload) (*models.File, error)
	// GetFilePreview derives the URL of a resized and cropped rendition.
	GetFilePreview(ctx context.Context, fileID string, opts models.PreviewOptions) (string, error)
	// DeleteFile removes the file and every rendition derived from it.
	DeleteFile(ctx context.Context, fileID string) error
}

type instrumented struct {
	next    Store
	backend string
}

// Instrument wraps s so that every call is traced and timed.
func Instrument(s Store, backend string) Store {
	return &instrumented{next: s, backend: backend}
}

func (s *instrumented) CreateFile(ctx context.Context, fileID string, upload models.Upload) (*models.File, error) {
	ctx, span := observability.TraceFileOperation(ctx, s.backend, "create", fileID)
	defer span.End()
	defer observability.TrackFileOp("create", s.backend)()

	f, err := s.next.CreateFile(ctx, fileID, upload)
	observability.RecordErrorInContext(ctx, err)
	return f, err
}

func (s *instrumented) GetFilePreview(ctx context.Context, fileID string, opts models.PreviewOptions) (string, error) {
	ctx, span := observability.TraceFileOperation(ctx, s.backend, "preview", fileID)
	defer span.End()
	defer observability.TrackFileOp("preview", s.backend)()

	u, err := s.next.GetFilePreview(ctx, fileID, opts)
	observability.RecordErrorInContext(ctx, err)
	return u, err
}

func (s *instrumented) DeleteFile(ctx context.Context, fileID string) error {
	ctx, span := observability.TraceFileOperation(ctx, s.backend, "delete", fileID)
	defer span.End()
	defer observability.TrackFileOp("delete", s.backend)()

	err := s.next.DeleteFile(ctx, fileID)
	observability.RecordErrorInContext(ctx, err)
	return err
}
