package repository

import (
	"context"
	"time"

	"snapgram/internal/models"
	"snapgram/internal/observability"
)

// UserRepository defines the interface for user profile documents.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByAccountID(ctx context.Context, accountID string) (*models.User, error)
	List(ctx context.Context, queries ...Query) ([]*models.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*models.User, error)
}

// UserUpdate is the set of profile fields replaced by Update.
type UserUpdate struct {
	Name     string
	Bio      string
	ImageURL string
	ImageID  string
}

type userRepository struct {
	col Collection[models.User]
	log *observability.RepoLogger
}

// NewUserRepository creates a user repository over col.
func NewUserRepository(col Collection[models.User]) UserRepository {
	return &userRepository{col: col, log: observability.NewRepoLogger(UsersCollection)}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	user.CreatedAt, user.UpdatedAt = now, now
	if err := r.col.Create(ctx, user); err != nil {
		return storeError("User", user.ID, err)
	}
	r.log.LogCreate(ctx, map[string]any{"user_id": user.ID, "account_id": user.AccountID})
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := r.col.Get(ctx, id)
	if err != nil {
		return nil, storeError("User", id, err)
	}
	return user, nil
}

func (r *userRepository) GetByAccountID(ctx context.Context, accountID string) (*models.User, error) {
	users, err := r.col.List(ctx, Equal("accountId", accountID), Limit(1))
	if err != nil {
		return nil, storeError("User", accountID, err)
	}
	if len(users) == 0 {
		return nil, storeError("User", accountID, ErrNotFound)
	}
	return users[0], nil
}

func (r *userRepository) List(ctx context.Context, queries ...Query) ([]*models.User, error) {
	users, err := r.col.List(ctx, queries...)
	if err != nil {
		return nil, storeError("User", "", err)
	}
	r.log.LogRead(ctx, map[string]any{"count": len(users)})
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	user, err := r.col.Update(ctx, id, Fields{
		"name":     upd.Name,
		"bio":      upd.Bio,
		"imageUrl": upd.ImageURL,
		"imageId":  upd.ImageID,
	})
	if err != nil {
		return nil, storeError("User", id, err)
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": id})
	return user, nil
}
