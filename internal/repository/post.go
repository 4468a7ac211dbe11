package repository

import (
	"context"
	"time"

	"snapgram/internal/models"
	"snapgram/internal/observability"
)

// PostRepository defines the interface for post documents.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, queries ...Query) ([]*models.Post, error)
	Update(ctx context.Context, id string, upd PostUpdate) (*models.Post, error)
	// UpdateLikes replaces the whole likes set. Concurrent callers
	// overwrite each other; the last write wins.
	UpdateLikes(ctx context.Context, id string, likes []string) (*models.Post, error)
	Delete(ctx context.Context, id string) error
}

// PostUpdate is the set of post fields replaced by Update.
type PostUpdate struct {
	Caption  string
	ImageURL string
	ImageID  string
	Location *string
	Tags     []string
}

type postRepository struct {
	col Collection[models.Post]
	log *observability.RepoLogger
}

// NewPostRepository creates a post repository over col.
func NewPostRepository(col Collection[models.Post]) PostRepository {
	return &postRepository{col: col, log: observability.NewRepoLogger(PostsCollection)}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	post.CreatedAt, post.UpdatedAt = now, now
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if post.Likes == nil {
		post.Likes = []string{}
	}
	if err := r.col.Create(ctx, post); err != nil {
		return storeError("Post", post.ID, err)
	}
	r.log.LogCreate(ctx, map[string]any{"post_id": post.ID, "creator": post.Creator})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := r.col.Get(ctx, id)
	if err != nil {
		return nil, storeError("Post", id, err)
	}
	return post, nil
}

func (r *postRepository) List(ctx context.Context, queries ...Query) ([]*models.Post, error) {
	posts, err := r.col.List(ctx, queries...)
	if err != nil {
		return nil, storeError("Post", "", err)
	}
	r.log.LogRead(ctx, map[string]any{"count": len(posts)})
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, id string, upd PostUpdate) (*models.Post, error) {
	tags := upd.Tags
	if tags == nil {
		tags = []string{}
	}
	post, err := r.col.Update(ctx, id, Fields{
		"caption":  upd.Caption,
		"imageUrl": upd.ImageURL,
		"imageId":  upd.ImageID,
		"location": upd.Location,
		"tags":     tags,
	})
	if err != nil {
		return nil, storeError("Post", id, err)
	}
	r.log.LogUpdate(ctx, map[string]any{"post_id": id})
	return post, nil
}

func (r *postRepository) UpdateLikes(ctx context.Context, id string, likes []string) (*models.Post, error) {
	if likes == nil {
		likes = []string{}
	}
	post, err := r.col.Update(ctx, id, Fields{"likes": likes})
	if err != nil {
		return nil, storeError("Post", id, err)
	}
	r.log.LogUpdate(ctx, map[string]any{"post_id": id, "likes": len(likes)})
	return post, nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	if err := r.col.Delete(ctx, id); err != nil {
		return storeError("Post", id, err)
	}
	r.log.LogDelete(ctx, map[string]any{"post_id": id})
	return nil
}
