package account

import (
	"context"
	"testing"
	"time"

	"snapgram/internal/models"
	"snapgram/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := repository.NewMemoryStore()
	require.NoError(t, err)
	return NewService(store.Accounts, store.Sessions, Options{
		Secret:     "test-secret",
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
}

func TestCreateAndSignIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestService(t)

	acc, err := s.Create(ctx, "Ada Lovelace", " Ada@Example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", acc.Email)
	assert.NotEqual(t, "password123", acc.PasswordHash)

	session, err := s.CreateEmailSession(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, session.AccountID)
	assert.NotEmpty(t, session.Token)

	got, err := s.Get(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
}

func TestCreateDuplicateEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestService(t)

	_, err := s.Create(ctx, "A", "a@example.com", "password123")
	require.NoError(t, err)
	_, err = s.Create(ctx, "B", "A@example.com", "password123")
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
}

func TestCreateEmailSessionRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestService(t)
	_, err := s.Create(ctx, "A", "a@example.com", "password123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "a@example.com", "password124"},
		{"unknown email", "b@example.com", "password123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := s.CreateEmailSession(ctx, tt.email, tt.password)
			assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
		})
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestService(t)
	_, err := s.Create(ctx, "A", "a@example.com", "password123")
	require.NoError(t, err)
	session, err := s.CreateEmailSession(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, session.Token))

	_, err = s.Get(ctx, session.Token)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(s.DeleteSession(ctx, session.Token)))
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestService(t)
	_, err := s.Create(ctx, "A", "a@example.com", "password123")
	require.NoError(t, err)
	session, err := s.CreateEmailSession(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	other := NewService(nil, nil, Options{Secret: "other-secret", BcryptCost: bcrypt.MinCost})
	forged, err := other.sign(session)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":     "",
		"garbage":   "not-a-jwt",
		"wrong key": forged,
		"tampered":  session.Token + "x",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := s.Authenticate(ctx, token)
			assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
		})
	}
}

func TestAuthenticateRejectsExpiredSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestService(t)
	_, err := s.Create(ctx, "A", "a@example.com", "password123")
	require.NoError(t, err)
	session, err := s.CreateEmailSession(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = s.Authenticate(ctx, session.Token)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
}
