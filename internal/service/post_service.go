package service

import (
	"context"
	"net/url"
	"strings"

	"snapgram/internal/cache"
	"snapgram/internal/filestore"
	"snapgram/internal/id"
	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/repository"
	"snapgram/internal/validation"
)

const (
	RecentPostsLimit   = 20
	InfinitePostsLimit = 10
)

type PostService struct {
	posts     repository.PostRepository
	saves     repository.SaveRepository
	media     *media
	cache     *cache.Cache
	validator *validation.Validator
	log       *observability.ServiceLogger
}

// PostOptions configure a PostService.
type PostOptions struct {
	MaxUploadSizeMB int
}

type CreatePostInput struct {
	Caption  string         `json:"caption" validate:"min=5,max=2200"`
	Location string         `json:"location" validate:"max=2200"`
	Tags     string         `json:"tags"`
	File     *models.Upload `json:"-"`
}

// UpdatePostInput replaces a post's fields. The post keeps its stored
// image unless File is set. ImageID and ImageURL echo the image the client
// last saw; a non-empty ImageID must match the stored one, and ImageURL is
// not trusted.
type UpdatePostInput struct {
	PostID   string         `json:"-"`
	Caption  string         `json:"caption" validate:"min=5,max=2200"`
	Location string         `json:"location" validate:"max=2200"`
	Tags     string         `json:"tags"`
	File     *models.Upload `json:"-"`
	ImageID  string         `json:"image_id"`
	ImageURL string         `json:"image_url"`
}

func NewPostService(
	posts repository.PostRepository,
	saves repository.SaveRepository,
	files filestore.Store,
	c *cache.Cache,
	opts PostOptions,
) *PostService {
	log := observability.NewServiceLogger("posts")
	return &PostService{
		posts:     posts,
		saves:     saves,
		media:     newMedia(files, opts.MaxUploadSizeMB, log),
		cache:     c,
		validator: validation.New(),
		log:       log,
	}
}

// CreatePost uploads the optional file, derives its preview and stores
// the post. A post document is never written for a file that failed, and
// a file whose post could not be written is deleted again. If that
// deletion fails too the error lists the file in Orphans.
func (s *PostService) CreatePost(ctx context.Context, caller Caller, in CreatePostInput) (post *models.Post, err error) {
	op, ctx := startOperation(ctx, s.log, "create_post")
	defer func() { op.end(ctx, err) }()

	if err := requireUser(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if err := s.media.validate(in.File); err != nil {
		return nil, err
	}
	tags := ParseTags(in.Tags)

	postID, err := id.Generate(id.Post)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	op.set("post_id", postID)

	post = &models.Post{
		ID:       postID,
		Creator:  caller.UserID,
		Caption:  in.Caption,
		Location: optional(in.Location),
		Tags:     tags,
		Likes:    []string{},
	}

	if in.File != nil {
		fileID, previewURL, err := s.media.upload(ctx, "create_post", in.File)
		if err != nil {
			return nil, err
		}
		op.set("file_id", fileID)
		post.ImageID, post.ImageURL = fileID, previewURL
	}

	if err := s.posts.Create(ctx, post); err != nil {
		if post.ImageID != "" {
			return nil, s.media.compensateInto(ctx, "create_post", post.ImageID, err)
		}
		return nil, err
	}

	s.cache.InvalidatePost(ctx, post.ID)
	return post, nil
}

// UpdatePost replaces the caption, location and tags of a post the
// caller created, and its image when a file is attached. A new file is
// cleaned up when the document update fails. After a successful update
// the superseded file is deleted best-effort: if that fails it stays
// orphaned and is only logged and counted.
func (s *PostService) UpdatePost(ctx context.Context, caller Caller, in UpdatePostInput) (post *models.Post, err error) {
	op, ctx := startOperation(ctx, s.log, "update_post")
	defer func() { op.end(ctx, err) }()
	op.set("post_id", in.PostID)

	if err := requireUser(caller); err != nil {
		return nil, err
	}
	if in.PostID == "" {
		return nil, models.NewValidationError("Post ID is required")
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if err := s.media.validate(in.File); err != nil {
		return nil, err
	}

	existing, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if existing.Creator != caller.UserID {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	imageID, imageURL, err := keptImage(existing.ImageID, existing.ImageURL, in.ImageID)
	if err != nil {
		return nil, err
	}
	upd := repository.PostUpdate{
		Caption:  in.Caption,
		ImageID:  imageID,
		ImageURL: imageURL,
		Location: optional(in.Location),
		Tags:     ParseTags(in.Tags),
	}

	var newFileID string
	if in.File != nil {
		fileID, previewURL, err := s.media.upload(ctx, "update_post", in.File)
		if err != nil {
			return nil, err
		}
		op.set("file_id", fileID)
		newFileID = fileID
		upd.ImageID, upd.ImageURL = fileID, previewURL
	}

	post, err = s.posts.Update(ctx, in.PostID, upd)
	if err != nil {
		if newFileID != "" {
			return nil, s.media.compensateInto(ctx, "update_post", newFileID, err)
		}
		return nil, err
	}

	if newFileID != "" && existing.ImageID != "" {
		s.media.discard(ctx, orphanSupersededFile, existing.ImageID)
	}

	s.cache.InvalidatePost(ctx, post.ID)
	return post, nil
}

// DeletePost deletes a post the caller created, then its stored image.
// imageID is optional; when given it must name that image. A file that
// cannot be deleted is left orphaned; the delete still succeeds.
func (s *PostService) DeletePost(ctx context.Context, caller Caller, postID, imageID string) (status models.Status, err error) {
	op, ctx := startOperation(ctx, s.log, "delete_post")
	defer func() { op.end(ctx, err) }()
	op.set("post_id", postID)

	if postID == "" {
		return models.Status{}, models.NewValidationError("Post ID is required")
	}
	if err := requireUser(caller); err != nil {
		return models.Status{}, err
	}

	existing, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return models.Status{}, err
	}
	if existing.Creator != caller.UserID {
		return models.Status{}, models.NewForbiddenError("You can only delete your own posts")
	}
	fileID, _, err := keptImage(existing.ImageID, existing.ImageURL, imageID)
	if err != nil {
		return models.Status{}, err
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return models.Status{}, err
	}
	s.cache.InvalidatePost(ctx, postID)

	if fileID != "" {
		op.set("file_id", fileID)
		s.media.discard(ctx, orphanDeletedPostFile, fileID)
	}
	return models.StatusOK, nil
}

// LikePost replaces the post's likes with likes. The caller sends the
// complete new set, so two concurrent likes can overwrite each other and
// lose one of them. The last write wins.
func (s *PostService) LikePost(ctx context.Context, postID string, likes []string) (post *models.Post, err error) {
	op, ctx := startOperation(ctx, s.log, "like_post")
	defer func() { op.end(ctx, err) }()
	op.set("post_id", postID)

	if postID == "" {
		return nil, models.NewValidationError("Post ID is required")
	}
	if likes == nil {
		likes = []string{}
	}

	post, err = s.posts.UpdateLikes(ctx, postID, likes)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidatePost(ctx, postID)
	return post, nil
}

// SavePost records that the caller saved a post. Saving the same post
// twice, or concurrently, creates two records.
func (s *PostService) SavePost(ctx context.Context, caller Caller, postID string) (save *models.Save, err error) {
	op, ctx := startOperation(ctx, s.log, "save_post")
	defer func() { op.end(ctx, err) }()
	op.set("post_id", postID)

	if postID == "" {
		return nil, models.NewValidationError("Post ID is required")
	}
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	saveID, err := id.Generate(id.Save)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	save = &models.Save{ID: saveID, User: caller.UserID, Post: postID}
	if err := s.saves.Create(ctx, save); err != nil {
		return nil, err
	}
	return save, nil
}

// DeleteSavedPost removes one of the caller's save records.
func (s *PostService) DeleteSavedPost(ctx context.Context, caller Caller, saveID string) (status models.Status, err error) {
	op, ctx := startOperation(ctx, s.log, "delete_saved_post")
	defer func() { op.end(ctx, err) }()
	op.set("save_id", saveID)

	if saveID == "" {
		return models.Status{}, models.NewValidationError("Save ID is required")
	}
	if err := requireUser(caller); err != nil {
		return models.Status{}, err
	}

	save, err := s.saves.GetByID(ctx, saveID)
	if err != nil {
		return models.Status{}, err
	}
	if save.User != caller.UserID {
		return models.Status{}, models.NewForbiddenError("You can only remove your own saves")
	}
	if err := s.saves.Delete(ctx, saveID); err != nil {
		return models.Status{}, err
	}
	return models.StatusOK, nil
}

// GetRecentPosts returns the newest posts.
func (s *PostService) GetRecentPosts(ctx context.Context) ([]*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "service.get_recent_posts")
	defer span.End()

	var posts []*models.Post
	err := s.cache.AsideList(ctx, cache.ScopePosts, "recent", &posts, func() error {
		var err error
		posts, err = s.posts.List(ctx,
			repository.OrderDesc("createdAt"),
			repository.Limit(RecentPostsLimit),
		)
		return err
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return posts, nil
}

// GetInfinitePosts returns one page of posts ordered by last update,
// starting after the post with id cursor. An empty cursor starts at the
// most recently updated post.
func (s *PostService) GetInfinitePosts(ctx context.Context, cursor string) ([]*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "service.get_infinite_posts")
	defer span.End()

	queries := []repository.Query{
		repository.OrderDesc("updatedAt"),
		repository.Limit(InfinitePostsLimit),
	}
	if cursor != "" {
		queries = append(queries, repository.CursorAfter(cursor))
	}

	var posts []*models.Post
	err := s.cache.AsideList(ctx, cache.ScopePosts, "infinite:"+cursor, &posts, func() error {
		var err error
		posts, err = s.posts.List(ctx, queries...)
		return err
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return posts, nil
}

// SearchPosts matches term against post captions.
func (s *PostService) SearchPosts(ctx context.Context, term string) ([]*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "service.search_posts")
	defer span.End()

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, models.NewValidationError("Search term is required")
	}

	var posts []*models.Post
	err := s.cache.AsideList(ctx, cache.ScopePosts, "search:"+url.QueryEscape(term), &posts, func() error {
		var err error
		posts, err = s.posts.List(ctx, repository.Search("caption", term))
		return err
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return posts, nil
}

func (s *PostService) GetPostByID(ctx context.Context, postID string) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "service.get_post")
	defer span.End()

	if postID == "" {
		return nil, models.NewValidationError("Post ID is required")
	}

	var post *models.Post
	err := s.cache.Aside(ctx, cache.PostKey(postID), &post, cache.PostTTL, func() error {
		var err error
		post, err = s.posts.GetByID(ctx, postID)
		return err
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return post, nil
}

// GetUserPosts returns the posts a user created, newest first.
func (s *PostService) GetUserPosts(ctx context.Context, userID string) ([]*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "service.get_user_posts")
	defer span.End()

	if userID == "" {
		return nil, models.NewValidationError("User ID is required")
	}

	var posts []*models.Post
	err := s.cache.AsideList(ctx, cache.ScopePosts, "user:"+userID, &posts, func() error {
		var err error
		posts, err = s.posts.List(ctx,
			repository.Equal("creator", userID),
			repository.OrderDesc("createdAt"),
		)
		return err
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return posts, nil
}

// GetSavedPosts returns the caller's saves, newest first, with their
// posts. Saves of posts that have since been deleted are skipped.
func (s *PostService) GetSavedPosts(ctx context.Context, caller Caller) ([]*models.SavedPost, error) {
	span, ctx := observability.NewSpan(ctx, "service.get_saved_posts")
	defer span.End()

	if err := requireUser(caller); err != nil {
		return nil, err
	}
	saves, err := s.saves.ListByUser(ctx, caller.UserID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	out := make([]*models.SavedPost, 0, len(saves))
	for _, save := range saves {
		post, err := s.GetPostByID(ctx, save.Post)
		if models.ErrorCode(err) == models.CodeNotFound {
			continue
		}
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		out = append(out, &models.SavedPost{Save: save, Post: post})
	}
	return out, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
