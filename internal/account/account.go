// Package account is the authentication adapter: accounts with bcrypt
// password hashes, and sessions presented to clients as signed JWTs.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"snapgram/internal/id"
	"snapgram/internal/models"
	"snapgram/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	issuer   = "snapgram-api"
	audience = "snapgram-client"
)

// Options configure a Service.
type Options struct {
	Secret     string
	SessionTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Service creates accounts and manages their sessions.
type Service struct {
	accounts repository.Collection[models.Account]
	sessions repository.Collection[models.Session]
	secret   []byte
	ttl      time.Duration
	cost     int
	now      func() time.Time
}

// NewService returns a Service storing accounts and sessions in the given
// collections.
func NewService(accounts repository.Collection[models.Account], sessions repository.Collection[models.Session], opts Options) *Service {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		accounts: accounts,
		sessions: sessions,
		secret:   []byte(opts.Secret),
		ttl:      ttl,
		cost:     cost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a new account. A second account with the same email
// fails with CONFLICT.
func (s *Service) Create(ctx context.Context, name, email, password string) (*models.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, models.NewAccountError("hash password", err)
	}
	accountID, err := id.Generate(id.Account)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	now := s.now().Truncate(time.Millisecond)
	acc := &models.Account{
		ID:           accountID,
		Name:         name,
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewConflictError("An account with this email already exists", err)
		}
		return nil, models.NewAccountError("create account", err)
	}
	return acc, nil
}

// CreateEmailSession signs in with email and password. The returned
// session carries the bearer token in Token.
func (s *Service) CreateEmailSession(ctx context.Context, email, password string) (*models.Session, error) {
	found, err := s.accounts.List(ctx, repository.Equal("email", normalizeEmail(email)), repository.Limit(1))
	if err != nil {
		return nil, models.NewAccountError("look up account", err)
	}
	if len(found) == 0 {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	acc := found[0]
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	sessionID, err := id.Generate(id.Session)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	now := s.now().Truncate(time.Millisecond)
	session := &models.Session{
		ID:        sessionID,
		AccountID: acc.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, models.NewAccountError("create session", err)
	}

	token, err := s.sign(session)
	if err != nil {
		return nil, models.NewAccountError("sign session token", err)
	}
	session.Token = token
	return session, nil
}

// Authenticate resolves a bearer token to its live session.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	accountID, sessionID, err := s.parse(token)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewUnauthorizedError("Session has ended")
	}
	if err != nil {
		return nil, models.NewAccountError("load session", err)
	}
	if session.AccountID != accountID || !s.now().Before(session.ExpiresAt) {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	return session, nil
}

// Get returns the account behind token.
func (s *Service) Get(ctx context.Context, token string) (*models.Account, error) {
	session, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.Get(ctx, session.AccountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewUnauthorizedError("Account no longer exists")
	}
	if err != nil {
		return nil, models.NewAccountError("load account", err)
	}
	return acc, nil
}

// DeleteSession ends the session behind token.
func (s *Service) DeleteSession(ctx context.Context, token string) error {
	session, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return models.NewAccountError("delete session", err)
	}
	return nil
}

func (s *Service) sign(session *models.Session) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}
	claims := jwt.MapClaims{
		"sub": session.AccountID,
		"sid": session.ID,
		"iss": issuer,
		"aud": audience,
		"exp": session.ExpiresAt.Unix(),
		"iat": session.CreatedAt.Unix(),
		"nbf": session.CreatedAt.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parse(tokenString string) (accountID, sessionID string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	sid, _ := claims["sid"].(string)
	if sub == "" || sid == "" {
		return "", "", errors.New("token missing subject or session")
	}
	return sub, sid, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
