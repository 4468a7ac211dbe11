package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"snapgram/internal/models"
	"snapgram/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostService(posts repository.PostRepository, saves repository.SaveRepository, files *fileStoreStub) *PostService {
	return NewPostService(posts, saves, files, nil, PostOptions{})
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name   string
		caller Caller
		input  CreatePostInput
		code   string
	}{
		{name: "anonymous", caller: Caller{}, input: CreatePostInput{Caption: "hello world"}, code: models.CodeUnauthorized},
		{name: "caption too short", caller: alice, input: CreatePostInput{Caption: "hey"}, code: models.CodeValidation},
		{name: "caption too long", caller: alice, input: CreatePostInput{Caption: strings.Repeat("x", 2201)}, code: models.CodeValidation},
		{name: "location too long", caller: alice, input: CreatePostInput{Caption: "hello world", Location: strings.Repeat("x", 2201)}, code: models.CodeValidation},
		{name: "not an image", caller: alice, input: CreatePostInput{Caption: "hello world", File: &models.Upload{Content: []byte("plain text")}}, code: models.CodeValidation},
		{name: "empty file", caller: alice, input: CreatePostInput{Caption: "hello world", File: &models.Upload{}}, code: models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			files := &fileStoreStub{}
			svc := newPostService(panicPostRepo(t), noopSaveRepo(), files)
			_, err := svc.CreatePost(ctx, tt.caller, tt.input)
			assertCode(t, err, tt.code)
			created, deleted := files.calls()
			assert.Empty(t, created)
			assert.Empty(t, deleted)
		})
	}
}

func TestPostService_CreatePost_PreviewFailureDeletesFile(t *testing.T) {
	t.Parallel()

	files := &fileStoreStub{
		previewFn: func(_ context.Context, _ string, _ models.PreviewOptions) (string, error) {
			return "", errors.New("transform failed")
		},
	}
	svc := newPostService(panicPostRepo(t), noopSaveRepo(), files)

	_, err := svc.CreatePost(context.Background(), alice, CreatePostInput{Caption: "hello world", File: pngUpload(t)})
	appErr := assertCode(t, err, models.CodeFileStore)
	assert.Empty(t, appErr.Orphans)

	created, deleted := files.calls()
	require.Len(t, created, 1)
	assert.Equal(t, created, deleted)
}

func TestPostService_CreatePost_DocumentFailureDeletesFile(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.createFn = func(_ context.Context, _ *models.Post) error {
		return models.NewDocumentStoreError("Post store failure", errStore)
	}
	files := &fileStoreStub{}
	svc := newPostService(posts, noopSaveRepo(), files)

	_, err := svc.CreatePost(context.Background(), alice, CreatePostInput{Caption: "hello world", File: pngUpload(t)})
	appErr := assertCode(t, err, models.CodeDocumentStore)
	assert.Empty(t, appErr.Orphans)

	created, deleted := files.calls()
	require.Len(t, created, 1)
	assert.Equal(t, created, deleted)
}

func TestPostService_CreatePost_FailedCompensationReportsOrphan(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.createFn = func(_ context.Context, _ *models.Post) error {
		return models.NewDocumentStoreError("Post store failure", errStore)
	}
	files := &fileStoreStub{deleteFn: func(_ context.Context, _ string) error { return errStore }}
	svc := newPostService(posts, noopSaveRepo(), files)

	_, err := svc.CreatePost(context.Background(), alice, CreatePostInput{Caption: "hello world", File: pngUpload(t)})
	appErr := assertCode(t, err, models.CodeDocumentStore)

	created, _ := files.calls()
	assert.Equal(t, created, appErr.Orphans)
}

func TestPostService_CreatePost_CompensationSurvivesCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	posts := noopPostRepo()
	posts.createFn = func(_ context.Context, _ *models.Post) error {
		cancel()
		return models.NewDocumentStoreError("Post store failure", context.Canceled)
	}
	files := &fileStoreStub{deleteFn: func(ctx context.Context, _ string) error { return ctx.Err() }}
	svc := newPostService(posts, noopSaveRepo(), files)

	_, err := svc.CreatePost(ctx, alice, CreatePostInput{Caption: "hello world", File: pngUpload(t)})
	appErr := assertCode(t, err, models.CodeDocumentStore)
	assert.Empty(t, appErr.Orphans)
}

func TestPostService_CreatePost_WithoutFile(t *testing.T) {
	t.Parallel()

	var stored *models.Post
	posts := noopPostRepo()
	posts.createFn = func(_ context.Context, p *models.Post) error { stored = p; return nil }
	files := &fileStoreStub{}
	svc := newPostService(posts, noopSaveRepo(), files)

	post, err := svc.CreatePost(context.Background(), alice, CreatePostInput{Caption: "hello world", Tags: "a, b,,c"})
	require.NoError(t, err)
	assert.Same(t, stored, post)
	assert.Equal(t, alice.UserID, post.Creator)
	assert.Equal(t, []string{"a", "b", "c"}, post.Tags)
	assert.Nil(t, post.Location)
	assert.False(t, post.HasImage())

	created, _ := files.calls()
	assert.Empty(t, created)
}

func TestPostService_UpdatePost_ReplacesImage(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
		return &models.Post{ID: id, Creator: alice.UserID, ImageID: "fil-old", ImageURL: "https://files.test/fil-old/preview"}, nil
	}
	files := &fileStoreStub{}
	svc := newPostService(posts, noopSaveRepo(), files)

	post, err := svc.UpdatePost(context.Background(), alice, UpdatePostInput{
		PostID:   "pst-1",
		Caption:  "updated caption",
		File:     pngUpload(t),
		ImageID:  "fil-old",
		ImageURL: "https://files.test/fil-old/preview",
	})
	require.NoError(t, err)

	created, deleted := files.calls()
	require.Len(t, created, 1)
	assert.Equal(t, created[0], post.ImageID)
	assert.Equal(t, "https://files.test/"+created[0]+"/preview", post.ImageURL)
	assert.Equal(t, []string{"fil-old"}, deleted)
}

func TestPostService_UpdatePost_KeepsExistingImage(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
		return &models.Post{ID: id, Creator: alice.UserID, ImageID: "fil-old", ImageURL: "https://files.test/fil-old/preview"}, nil
	}
	files := &fileStoreStub{}
	svc := newPostService(posts, noopSaveRepo(), files)

	post, err := svc.UpdatePost(context.Background(), alice, UpdatePostInput{
		PostID:   "pst-1",
		Caption:  "updated caption",
		ImageID:  "fil-old",
		ImageURL: "https://files.test/fil-old/preview",
	})
	require.NoError(t, err)
	assert.Equal(t, "fil-old", post.ImageID)

	created, deleted := files.calls()
	assert.Empty(t, created)
	assert.Empty(t, deleted)
}

func TestPostService_UpdatePost_DocumentFailureDeletesNewFileOnly(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
		return &models.Post{ID: id, Creator: alice.UserID, ImageID: "fil-old", ImageURL: "u"}, nil
	}
	posts.updateFn = func(_ context.Context, _ string, _ repository.PostUpdate) (*models.Post, error) {
		return nil, models.NewDocumentStoreError("Post store failure", errStore)
	}
	files := &fileStoreStub{}
	svc := newPostService(posts, noopSaveRepo(), files)

	_, err := svc.UpdatePost(context.Background(), alice, UpdatePostInput{
		PostID: "pst-1", Caption: "updated caption", File: pngUpload(t), ImageID: "fil-old", ImageURL: "u",
	})
	assertCode(t, err, models.CodeDocumentStore)

	created, deleted := files.calls()
	require.Len(t, created, 1)
	assert.Equal(t, created, deleted)
}

func TestPostService_UpdatePost_SupersededDeleteFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
		return &models.Post{ID: id, Creator: alice.UserID, ImageID: "fil-old", ImageURL: "u"}, nil
	}
	files := &fileStoreStub{deleteFn: func(_ context.Context, _ string) error { return errStore }}
	svc := newPostService(posts, noopSaveRepo(), files)

	post, err := svc.UpdatePost(context.Background(), alice, UpdatePostInput{
		PostID: "pst-1", Caption: "updated caption", File: pngUpload(t), ImageID: "fil-old", ImageURL: "u",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "fil-old", post.ImageID)
}

func TestPostService_UpdatePost_UsesStoredImage(t *testing.T) {
	t.Parallel()

	const storedURL = "https://files.test/fil-old/preview"
	tests := []struct {
		name        string
		input       UpdatePostInput
		withFile    bool
		wantCode    string
		wantDeleted []string
		wantImageID string
		wantURL     string
	}{
		{
			name:     "image id of another document",
			input:    UpdatePostInput{ImageID: "fil-alice", ImageURL: "https://files.test/fil-alice/preview"},
			withFile: true,
			wantCode: models.CodeValidation,
		},
		{
			name:        "replace without image id deletes stored file",
			withFile:    true,
			wantDeleted: []string{"fil-old"},
		},
		{
			name:        "image id without url keeps stored pair",
			input:       UpdatePostInput{ImageID: "fil-old"},
			wantImageID: "fil-old",
			wantURL:     storedURL,
		},
		{
			name:        "url without image id is ignored",
			input:       UpdatePostInput{ImageURL: "https://elsewhere.test/x.png"},
			wantImageID: "fil-old",
			wantURL:     storedURL,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			posts := noopPostRepo()
			posts.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
				return &models.Post{ID: id, Creator: alice.UserID, ImageID: "fil-old", ImageURL: storedURL}, nil
			}
			updated := false
			next := posts.updateFn
			posts.updateFn = func(ctx context.Context, id string, upd repository.PostUpdate) (*models.Post, error) {
				updated = true
				return next(ctx, id, upd)
			}
			files := &fileStoreStub{}
			svc := newPostService(posts, noopSaveRepo(), files)

			in := tt.input
			in.PostID, in.Caption = "pst-1", "updated caption"
			if tt.withFile {
				in.File = pngUpload(t)
			}
			post, err := svc.UpdatePost(context.Background(), alice, in)

			created, deleted := files.calls()
			assert.Equal(t, tt.wantDeleted, deleted)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				assert.False(t, updated)
				assert.Empty(t, created)
				return
			}
			require.NoError(t, err)
			if tt.withFile {
				require.Len(t, created, 1)
				assert.Equal(t, created[0], post.ImageID)
				return
			}
			assert.Equal(t, tt.wantImageID, post.ImageID)
			assert.Equal(t, tt.wantURL, post.ImageURL)
		})
	}
}

func TestPostService_UpdatePost_Forbidden(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
		return &models.Post{ID: id, Creator: "usr-bob"}, nil
	}
	posts.updateFn = func(_ context.Context, _ string, _ repository.PostUpdate) (*models.Post, error) {
		t.Fatal("update must not be called")
		return nil, nil
	}
	files := &fileStoreStub{}
	svc := newPostService(posts, noopSaveRepo(), files)

	_, err := svc.UpdatePost(context.Background(), alice, UpdatePostInput{PostID: "pst-1", Caption: "updated caption", File: pngUpload(t)})
	assertCode(t, err, models.CodeForbidden)

	created, _ := files.calls()
	assert.Empty(t, created)
}

func TestPostService_DeletePost_EmptyIDMakesNoCalls(t *testing.T) {
	t.Parallel()

	files := &fileStoreStub{}
	svc := newPostService(panicPostRepo(t), noopSaveRepo(), files)

	_, err := svc.DeletePost(context.Background(), alice, "", "fil-1")
	assertCode(t, err, models.CodeValidation)

	created, deleted := files.calls()
	assert.Empty(t, created)
	assert.Empty(t, deleted)
}

func TestPostService_DeletePost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		creator     string
		stored      string
		imageID     string
		deleteErr   error
		wantCode    string
		wantDeleted []string
	}{
		{name: "with image", creator: alice.UserID, stored: "fil-1", imageID: "fil-1", wantDeleted: []string{"fil-1"}},
		{name: "without image", creator: alice.UserID},
		{name: "image id omitted", creator: alice.UserID, stored: "fil-1", wantDeleted: []string{"fil-1"}},
		{name: "file delete fails", creator: alice.UserID, stored: "fil-1", imageID: "fil-1", deleteErr: errStore, wantDeleted: []string{"fil-1"}},
		{name: "not the creator", creator: "usr-bob", stored: "fil-1", imageID: "fil-1", wantCode: models.CodeForbidden},
		{name: "image id of another post", creator: alice.UserID, stored: "fil-1", imageID: "fil-bob", wantCode: models.CodeValidation},
		{name: "image id on post without image", creator: alice.UserID, imageID: "fil-bob", wantCode: models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			posts := noopPostRepo()
			posts.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
				post := &models.Post{ID: id, Creator: tt.creator}
				if tt.stored != "" {
					post.ImageID, post.ImageURL = tt.stored, "https://files.test/"+tt.stored+"/preview"
				}
				return post, nil
			}
			docDeleted := false
			posts.deleteFn = func(_ context.Context, _ string) error { docDeleted = true; return nil }
			files := &fileStoreStub{deleteFn: func(_ context.Context, _ string) error { return tt.deleteErr }}
			svc := newPostService(posts, noopSaveRepo(), files)

			status, err := svc.DeletePost(context.Background(), alice, "pst-1", tt.imageID)
			_, deleted := files.calls()
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				assert.False(t, docDeleted)
				assert.Empty(t, deleted)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusOK, status)
			assert.True(t, docDeleted)
			assert.Equal(t, tt.wantDeleted, deleted)
		})
	}
}

func TestPostService_DeletePost_DocumentFailureKeepsFile(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
		return &models.Post{ID: id, Creator: alice.UserID, ImageID: "fil-1", ImageURL: "u"}, nil
	}
	posts.deleteFn = func(_ context.Context, _ string) error {
		return models.NewDocumentStoreError("Post store failure", errStore)
	}
	files := &fileStoreStub{}
	svc := newPostService(posts, noopSaveRepo(), files)

	_, err := svc.DeletePost(context.Background(), alice, "pst-1", "fil-1")
	assertCode(t, err, models.CodeDocumentStore)
	_, deleted := files.calls()
	assert.Empty(t, deleted)
}

func TestPostService_LikePost(t *testing.T) {
	t.Parallel()

	var got []string
	posts := noopPostRepo()
	posts.updateLikesFn = func(_ context.Context, id string, likes []string) (*models.Post, error) {
		got = likes
		return &models.Post{ID: id, Likes: likes}, nil
	}
	svc := newPostService(posts, noopSaveRepo(), &fileStoreStub{})

	post, err := svc.LikePost(context.Background(), "pst-1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)
	assert.Empty(t, post.Likes)

	_, err = svc.LikePost(context.Background(), "", []string{"usr-1"})
	assertCode(t, err, models.CodeValidation)
}

func TestPostService_SavePost(t *testing.T) {
	t.Parallel()

	var saved []*models.Save
	saves := noopSaveRepo()
	saves.createFn = func(_ context.Context, s *models.Save) error { saved = append(saved, s); return nil }
	svc := newPostService(noopPostRepo(), saves, &fileStoreStub{})

	for range 2 {
		save, err := svc.SavePost(context.Background(), alice, "pst-1")
		require.NoError(t, err)
		assert.Equal(t, alice.UserID, save.User)
		assert.Equal(t, "pst-1", save.Post)
	}
	require.Len(t, saved, 2)
	assert.NotEqual(t, saved[0].ID, saved[1].ID)

	_, err := svc.SavePost(context.Background(), Caller{}, "pst-1")
	assertCode(t, err, models.CodeUnauthorized)
}

func TestPostService_DeleteSavedPost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		owner    string
		saveID   string
		wantCode string
	}{
		{name: "owner", owner: alice.UserID, saveID: "sav-1"},
		{name: "someone else", owner: "usr-bob", saveID: "sav-1", wantCode: models.CodeForbidden},
		{name: "empty id", owner: alice.UserID, saveID: "", wantCode: models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			saves := noopSaveRepo()
			saves.getByIDFn = func(_ context.Context, id string) (*models.Save, error) {
				return &models.Save{ID: id, User: tt.owner, Post: "pst-1"}, nil
			}
			svc := newPostService(noopPostRepo(), saves, &fileStoreStub{})

			status, err := svc.DeleteSavedPost(context.Background(), alice, tt.saveID)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusOK, status)
		})
	}
}

func TestPostService_Reads(t *testing.T) {
	t.Parallel()

	var gotQueries [][]repository.Query
	posts := noopPostRepo()
	posts.listFn = func(_ context.Context, q ...repository.Query) ([]*models.Post, error) {
		gotQueries = append(gotQueries, q)
		return []*models.Post{{ID: "pst-1"}}, nil
	}
	svc := newPostService(posts, noopSaveRepo(), &fileStoreStub{})
	ctx := context.Background()

	recent, err := svc.GetRecentPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	_, err = svc.GetInfinitePosts(ctx, "")
	require.NoError(t, err)
	_, err = svc.GetInfinitePosts(ctx, "pst-9")
	require.NoError(t, err)
	_, err = svc.SearchPosts(ctx, "sunset")
	require.NoError(t, err)

	assert.Equal(t, []repository.Query{repository.OrderDesc("createdAt"), repository.Limit(RecentPostsLimit)}, gotQueries[0])
	assert.Equal(t, []repository.Query{repository.OrderDesc("updatedAt"), repository.Limit(InfinitePostsLimit)}, gotQueries[1])
	assert.Equal(t, []repository.Query{repository.OrderDesc("updatedAt"), repository.Limit(InfinitePostsLimit), repository.CursorAfter("pst-9")}, gotQueries[2])
	assert.Equal(t, []repository.Query{repository.Search("caption", "sunset")}, gotQueries[3])

	_, err = svc.SearchPosts(ctx, "   ")
	assertCode(t, err, models.CodeValidation)
	_, err = svc.GetPostByID(ctx, "")
	assertCode(t, err, models.CodeValidation)
}

func TestPostService_GetSavedPostsSkipsDeletedPosts(t *testing.T) {
	t.Parallel()

	saves := noopSaveRepo()
	saves.listByUserFn = func(_ context.Context, _ string) ([]*models.Save, error) {
		return []*models.Save{{ID: "sav-1", Post: "pst-live"}, {ID: "sav-2", Post: "pst-gone"}}, nil
	}
	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
		if id == "pst-gone" {
			return nil, models.NewNotFoundError("Post", id)
		}
		return &models.Post{ID: id}, nil
	}
	svc := newPostService(posts, saves, &fileStoreStub{})

	saved, err := svc.GetSavedPosts(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "pst-live", saved[0].Post.ID)
}
