package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"snapgram/internal/models"
	"snapgram/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn      func(context.Context, *models.Post) error
	getByIDFn     func(context.Context, string) (*models.Post, error)
	listFn        func(context.Context, ...repository.Query) ([]*models.Post, error)
	updateFn      func(context.Context, string, repository.PostUpdate) (*models.Post, error)
	updateLikesFn func(context.Context, string, []string) (*models.Post, error)
	deleteFn      func(context.Context, string) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, queries ...repository.Query) ([]*models.Post, error) {
	return s.listFn(ctx, queries...)
}
func (s *postRepoStub) Update(ctx context.Context, id string, upd repository.PostUpdate) (*models.Post, error) {
	return s.updateFn(ctx, id, upd)
}
func (s *postRepoStub) UpdateLikes(ctx context.Context, id string, likes []string) (*models.Post, error) {
	return s.updateLikesFn(ctx, id, likes)
}
func (s *postRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listFn:    func(_ context.Context, _ ...repository.Query) ([]*models.Post, error) { return nil, nil },
		updateFn: func(_ context.Context, id string, upd repository.PostUpdate) (*models.Post, error) {
			return &models.Post{ID: id, Caption: upd.Caption, ImageID: upd.ImageID, ImageURL: upd.ImageURL, Tags: upd.Tags}, nil
		},
		updateLikesFn: func(_ context.Context, id string, likes []string) (*models.Post, error) {
			return &models.Post{ID: id, Likes: likes}, nil
		},
		deleteFn: func(_ context.Context, _ string) error { return nil },
	}
}

// panicPostRepo fails the test on any call.
func panicPostRepo(t *testing.T) *postRepoStub {
	fail := func() { t.Helper(); t.Fatal("unexpected post repository call") }
	return &postRepoStub{
		createFn:      func(_ context.Context, _ *models.Post) error { fail(); return nil },
		getByIDFn:     func(_ context.Context, _ string) (*models.Post, error) { fail(); return nil, nil },
		listFn:        func(_ context.Context, _ ...repository.Query) ([]*models.Post, error) { fail(); return nil, nil },
		updateFn:      func(_ context.Context, _ string, _ repository.PostUpdate) (*models.Post, error) { fail(); return nil, nil },
		updateLikesFn: func(_ context.Context, _ string, _ []string) (*models.Post, error) { fail(); return nil, nil },
		deleteFn:      func(_ context.Context, _ string) error { fail(); return nil },
	}
}

// saveRepoStub is a stub for repository.SaveRepository.
type saveRepoStub struct {
	createFn     func(context.Context, *models.Save) error
	getByIDFn    func(context.Context, string) (*models.Save, error)
	listByUserFn func(context.Context, string) ([]*models.Save, error)
	deleteFn     func(context.Context, string) error
}

func (s *saveRepoStub) Create(ctx context.Context, save *models.Save) error {
	return s.createFn(ctx, save)
}
func (s *saveRepoStub) GetByID(ctx context.Context, id string) (*models.Save, error) {
	return s.getByIDFn(ctx, id)
}
func (s *saveRepoStub) ListByUser(ctx context.Context, userID string) ([]*models.Save, error) {
	return s.listByUserFn(ctx, userID)
}
func (s *saveRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func noopSaveRepo() *saveRepoStub {
	return &saveRepoStub{
		createFn:     func(_ context.Context, _ *models.Save) error { return nil },
		getByIDFn:    func(_ context.Context, id string) (*models.Save, error) { return &models.Save{ID: id}, nil },
		listByUserFn: func(_ context.Context, _ string) ([]*models.Save, error) { return nil, nil },
		deleteFn:     func(_ context.Context, _ string) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn         func(context.Context, *models.User) error
	getByIDFn        func(context.Context, string) (*models.User, error)
	getByAccountIDFn func(context.Context, string) (*models.User, error)
	listFn           func(context.Context, ...repository.Query) ([]*models.User, error)
	updateFn         func(context.Context, string, repository.UserUpdate) (*models.User, error)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByAccountID(ctx context.Context, accountID string) (*models.User, error) {
	return s.getByAccountIDFn(ctx, accountID)
}
func (s *userRepoStub) List(ctx context.Context, queries ...repository.Query) ([]*models.User, error) {
	return s.listFn(ctx, queries...)
}
func (s *userRepoStub) Update(ctx context.Context, id string, upd repository.UserUpdate) (*models.User, error) {
	return s.updateFn(ctx, id, upd)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn:         func(_ context.Context, _ *models.User) error { return nil },
		getByIDFn:        func(_ context.Context, id string) (*models.User, error) { return &models.User{ID: id}, nil },
		getByAccountIDFn: func(_ context.Context, acc string) (*models.User, error) { return &models.User{ID: "usr-1", AccountID: acc}, nil },
		listFn:           func(_ context.Context, _ ...repository.Query) ([]*models.User, error) { return nil, nil },
		updateFn: func(_ context.Context, id string, upd repository.UserUpdate) (*models.User, error) {
			return &models.User{ID: id, Name: upd.Name, Bio: upd.Bio, ImageID: upd.ImageID, ImageURL: upd.ImageURL}, nil
		},
	}
}

// accountStub is a stub for AccountService.
type accountStub struct {
	createFn        func(context.Context, string, string, string) (*models.Account, error)
	createSessionFn func(context.Context, string, string) (*models.Session, error)
	authenticateFn  func(context.Context, string) (*models.Session, error)
	getFn           func(context.Context, string) (*models.Account, error)
	deleteSessionFn func(context.Context, string) error
}

func (s *accountStub) Create(ctx context.Context, name, email, password string) (*models.Account, error) {
	return s.createFn(ctx, name, email, password)
}
func (s *accountStub) CreateEmailSession(ctx context.Context, email, password string) (*models.Session, error) {
	return s.createSessionFn(ctx, email, password)
}
func (s *accountStub) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	return s.authenticateFn(ctx, token)
}
func (s *accountStub) Get(ctx context.Context, token string) (*models.Account, error) {
	return s.getFn(ctx, token)
}
func (s *accountStub) DeleteSession(ctx context.Context, token string) error {
	return s.deleteSessionFn(ctx, token)
}

func noopAccounts() *accountStub {
	return &accountStub{
		createFn: func(_ context.Context, name, email, _ string) (*models.Account, error) {
			return &models.Account{ID: "acc-1", Name: name, Email: email}, nil
		},
		createSessionFn: func(_ context.Context, _, _ string) (*models.Session, error) {
			return &models.Session{ID: "ses-1", AccountID: "acc-1", Token: "tok"}, nil
		},
		authenticateFn: func(_ context.Context, _ string) (*models.Session, error) {
			return &models.Session{ID: "ses-1", AccountID: "acc-1"}, nil
		},
		getFn:           func(_ context.Context, _ string) (*models.Account, error) { return &models.Account{ID: "acc-1"}, nil },
		deleteSessionFn: func(_ context.Context, _ string) error { return nil },
	}
}

// fileStoreStub records calls and delegates to optional funcs.
type fileStoreStub struct {
	mu        sync.Mutex
	created   []string
	deleted   []string
	createFn  func(context.Context, string, models.Upload) (*models.File, error)
	previewFn func(context.Context, string, models.PreviewOptions) (string, error)
	deleteFn  func(context.Context, string) error
}

func (s *fileStoreStub) CreateFile(ctx context.Context, fileID string, up models.Upload) (*models.File, error) {
	s.mu.Lock()
	s.created = append(s.created, fileID)
	s.mu.Unlock()
	if s.createFn != nil {
		return s.createFn(ctx, fileID, up)
	}
	return &models.File{ID: fileID, Name: up.Name}, nil
}

func (s *fileStoreStub) GetFilePreview(ctx context.Context, fileID string, opts models.PreviewOptions) (string, error) {
	if s.previewFn != nil {
		return s.previewFn(ctx, fileID, opts)
	}
	return "https://files.test/" + fileID + "/preview", nil
}

func (s *fileStoreStub) DeleteFile(ctx context.Context, fileID string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, fileID)
	s.mu.Unlock()
	if s.deleteFn != nil {
		return s.deleteFn(ctx, fileID)
	}
	return nil
}

func (s *fileStoreStub) calls() (created, deleted []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.created...), append([]string(nil), s.deleted...)
}

var errStore = errors.New("store unavailable")

var alice = Caller{UserID: "usr-alice", AccountID: "acc-alice", SessionToken: "tok-alice"}

func pngUpload(t *testing.T) *models.Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &models.Upload{Name: "photo.png", ContentType: "image/png", Content: buf.Bytes()}
}

func assertCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}
