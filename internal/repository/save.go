package repository

import (
	"context"
	"time"

	"snapgram/internal/models"
	"snapgram/internal/observability"
)

// SaveRepository defines the interface for save records. There is no
// uniqueness on (user, post): two creates for the same pair both succeed.
type SaveRepository interface {
	Create(ctx context.Context, save *models.Save) error
	GetByID(ctx context.Context, id string) (*models.Save, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Save, error)
	Delete(ctx context.Context, id string) error
}

type saveRepository struct {
	col Collection[models.Save]
	log *observability.RepoLogger
}

// NewSaveRepository creates a save repository over col.
func NewSaveRepository(col Collection[models.Save]) SaveRepository {
	return &saveRepository{col: col, log: observability.NewRepoLogger(SavesCollection)}
}

func (r *saveRepository) Create(ctx context.Context, save *models.Save) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	save.CreatedAt, save.UpdatedAt = now, now
	if err := r.col.Create(ctx, save); err != nil {
		return storeError("Save", save.ID, err)
	}
	r.log.LogCreate(ctx, map[string]any{"save_id": save.ID, "user": save.User, "post": save.Post})
	return nil
}

func (r *saveRepository) GetByID(ctx context.Context, id string) (*models.Save, error) {
	save, err := r.col.Get(ctx, id)
	if err != nil {
		return nil, storeError("Save", id, err)
	}
	return save, nil
}

func (r *saveRepository) ListByUser(ctx context.Context, userID string) ([]*models.Save, error) {
	saves, err := r.col.List(ctx, Equal("user", userID), OrderDesc("createdAt"))
	if err != nil {
		return nil, storeError("Save", "", err)
	}
	return saves, nil
}

func (r *saveRepository) Delete(ctx context.Context, id string) error {
	if err := r.col.Delete(ctx, id); err != nil {
		return storeError("Save", id, err)
	}
	r.log.LogDelete(ctx, map[string]any{"save_id": id})
	return nil
}
