package service

import (
	"context"
	"errors"
	"strconv"

	"snapgram/internal/cache"
	"snapgram/internal/filestore"
	"snapgram/internal/id"
	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/repository"
	"snapgram/internal/validation"
)

type UserService struct {
	users         repository.UserRepository
	accounts      AccountService
	media         *media
	cache         *cache.Cache
	validator     *validation.Validator
	log           *observability.ServiceLogger
	avatarBaseURL string
}

// UserOptions configure a UserService.
type UserOptions struct {
	AvatarBaseURL   string
	MaxUploadSizeMB int
}

type SignUpInput struct {
	Name     string `json:"name" validate:"min=2"`
	Username string `json:"username" validate:"min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8"`
}

// UpdateProfileInput replaces a user's profile. The stored avatar is kept
// unless File is set; a non-empty ImageID must name it.
type UpdateProfileInput struct {
	UserID   string         `json:"-"`
	Name     string         `json:"name" validate:"min=2"`
	Bio      string         `json:"bio" validate:"max=2200"`
	File     *models.Upload `json:"-"`
	ImageID  string         `json:"image_id"`
	ImageURL string         `json:"image_url"`
}

func NewUserService(
	users repository.UserRepository,
	accounts AccountService,
	files filestore.Store,
	c *cache.Cache,
	opts UserOptions,
) *UserService {
	log := observability.NewServiceLogger("users")
	return &UserService{
		users:         users,
		accounts:      accounts,
		media:         newMedia(files, opts.MaxUploadSizeMB, log),
		cache:         c,
		validator:     validation.New(),
		log:           log,
		avatarBaseURL: opts.AvatarBaseURL,
	}
}

// CreateUserAccount creates the auth account and then the user profile
// bound to it. If the profile cannot be written the account is left
// behind without a profile: the error carries its id in Orphans and the
// orphan is counted. The account adapter has no delete, so there is no
// compensation for this step.
func (s *UserService) CreateUserAccount(ctx context.Context, in SignUpInput) (user *models.User, err error) {
	op, ctx := startOperation(ctx, s.log, "create_user_account")
	defer func() { op.end(ctx, err) }()

	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	acc, err := s.accounts.Create(ctx, in.Name, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	op.set("account_id", acc.ID)

	userID, err := id.Generate(id.User)
	if err != nil {
		return nil, s.orphanAccount(ctx, acc.ID, models.NewInternalError(err))
	}
	user = &models.User{
		ID:        userID,
		AccountID: acc.ID,
		Name:      in.Name,
		Username:  in.Username,
		Email:     acc.Email,
		ImageURL:  InitialsAvatarURL(s.avatarBaseURL, in.Name),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, s.orphanAccount(ctx, acc.ID, err)
	}

	s.cache.InvalidateUser(ctx, user.ID, acc.ID)
	return user, nil
}

func (s *UserService) orphanAccount(ctx context.Context, accountID string, cause error) error {
	observability.OrphanedResourcesTotal.WithLabelValues("account", orphanUserCreateFailed).Inc()
	s.log.LogOrphan(ctx, "account", accountID, orphanUserCreateFailed, cause)

	var appErr *models.AppError
	if errors.As(cause, &appErr) {
		return appErr.WithOrphans(accountID)
	}
	return models.NewDocumentStoreError("Failed to create user", cause).WithOrphans(accountID)
}

// SignIn opens a session. The returned session carries the bearer token.
func (s *UserService) SignIn(ctx context.Context, in SignInInput) (session *models.Session, err error) {
	op, ctx := startOperation(ctx, s.log, "sign_in")
	defer func() { op.end(ctx, err) }()

	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	session, err = s.accounts.CreateEmailSession(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	op.set("account_id", session.AccountID)
	return session, nil
}

// SignOut ends the caller's current session.
func (s *UserService) SignOut(ctx context.Context, caller Caller) (status models.Status, err error) {
	op, ctx := startOperation(ctx, s.log, "sign_out")
	defer func() { op.end(ctx, err) }()

	if caller.SessionToken == "" {
		return models.Status{}, models.NewUnauthorizedError("No active session")
	}
	if err := s.accounts.DeleteSession(ctx, caller.SessionToken); err != nil {
		return models.Status{}, err
	}
	if caller.AccountID != "" {
		s.cache.Invalidate(ctx, cache.CurrentUserKey(caller.AccountID))
	}
	return models.StatusOK, nil
}

// Authenticate resolves a bearer token to a Caller. An account without a
// profile yields a Caller with an empty UserID.
func (s *UserService) Authenticate(ctx context.Context, token string) (Caller, error) {
	if token == "" {
		return Caller{}, models.NewUnauthorizedError("Authorization required")
	}
	session, err := s.accounts.Authenticate(ctx, token)
	if err != nil {
		return Caller{}, err
	}

	caller := Caller{AccountID: session.AccountID, SessionToken: token}
	user, err := s.userByAccount(ctx, session.AccountID)
	switch {
	case err == nil:
		caller.UserID = user.ID
	case models.ErrorCode(err) != models.CodeNotFound:
		return Caller{}, err
	}
	return caller, nil
}

// GetCurrentUser returns the profile of the account behind the caller's
// session.
func (s *UserService) GetCurrentUser(ctx context.Context, caller Caller) (*models.User, error) {
	span, ctx := observability.NewSpan(ctx, "service.get_current_user")
	defer span.End()

	if caller.SessionToken == "" {
		return nil, models.NewUnauthorizedError("No active session")
	}
	acc, err := s.accounts.Get(ctx, caller.SessionToken)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	user, err := s.userByAccount(ctx, acc.ID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return user, nil
}

func (s *UserService) userByAccount(ctx context.Context, accountID string) (*models.User, error) {
	var user *models.User
	err := s.cache.Aside(ctx, cache.CurrentUserKey(accountID), &user, cache.UserTTL, func() error {
		var err error
		user, err = s.users.GetByAccountID(ctx, accountID)
		return err
	})
	return user, err
}

// GetUsers lists users, newest first. A limit of zero means no limit.
func (s *UserService) GetUsers(ctx context.Context, limit int) ([]*models.User, error) {
	span, ctx := observability.NewSpan(ctx, "service.get_users")
	defer span.End()

	if limit < 0 {
		return nil, models.NewValidationError("Limit must not be negative")
	}
	queries := []repository.Query{repository.OrderDesc("createdAt")}
	if limit > 0 {
		queries = append(queries, repository.Limit(limit))
	}

	var users []*models.User
	err := s.cache.AsideList(ctx, cache.ScopeUsers, "list:"+strconv.Itoa(limit), &users, func() error {
		var err error
		users, err = s.users.List(ctx, queries...)
		return err
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return users, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	span, ctx := observability.NewSpan(ctx, "service.get_user")
	defer span.End()

	if userID == "" {
		return nil, models.NewValidationError("User ID is required")
	}

	var user *models.User
	err := s.cache.Aside(ctx, cache.UserKey(userID), &user, cache.UserTTL, func() error {
		var err error
		user, err = s.users.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return user, nil
}

// UpdateUserProfile replaces the caller's name and bio, and the avatar
// when a file is attached. File handling follows UpdatePost: a new file is
// cleaned up if the update fails, and the superseded one is deleted
// best-effort afterwards.
func (s *UserService) UpdateUserProfile(ctx context.Context, caller Caller, in UpdateProfileInput) (user *models.User, err error) {
	op, ctx := startOperation(ctx, s.log, "update_user_profile")
	defer func() { op.end(ctx, err) }()
	op.set("user_id", in.UserID)

	if err := requireUser(caller); err != nil {
		return nil, err
	}
	if in.UserID == "" {
		return nil, models.NewValidationError("User ID is required")
	}
	if in.UserID != caller.UserID {
		return nil, models.NewForbiddenError("You can only edit your own profile")
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if err := s.media.validate(in.File); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	imageID, imageURL, err := keptImage(existing.ImageID, existing.ImageURL, in.ImageID)
	if err != nil {
		return nil, err
	}
	upd := repository.UserUpdate{
		Name:     in.Name,
		Bio:      in.Bio,
		ImageID:  imageID,
		ImageURL: imageURL,
	}

	var newFileID string
	if in.File != nil {
		fileID, previewURL, err := s.media.upload(ctx, "update_user_profile", in.File)
		if err != nil {
			return nil, err
		}
		op.set("file_id", fileID)
		newFileID = fileID
		upd.ImageID, upd.ImageURL = fileID, previewURL
	}

	user, err = s.users.Update(ctx, in.UserID, upd)
	if err != nil {
		if newFileID != "" {
			return nil, s.media.compensateInto(ctx, "update_user_profile", newFileID, err)
		}
		return nil, err
	}

	if newFileID != "" && existing.ImageID != "" {
		s.media.discard(ctx, orphanSupersededFile, existing.ImageID)
	}

	s.cache.InvalidateUser(ctx, user.ID, user.AccountID)
	return user, nil
}
