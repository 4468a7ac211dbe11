package repository

import (
	"errors"

	"snapgram/internal/models"
)

// storeError converts a Collection error into the AppError kind the
// service layer reports.
func storeError(resource, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		appErr := models.NewNotFoundError(resource, id)
		appErr.Err = err
		return appErr
	case errors.Is(err, ErrDuplicate):
		return models.NewConflictError(resource+" already exists", err)
	default:
		return models.NewDocumentStoreError(resource+" store failure", err)
	}
}
