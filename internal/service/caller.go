// Package service is the mutation orchestrator and read layer. Mutations
// span the file store and the document store and clean up after
// themselves on partial failure; reads go through the Redis cache.
package service

import (
	"context"

	"snapgram/internal/models"
)

// Caller identifies who is performing an operation. It is resolved from
// the bearer token by the presentation layer and passed explicitly.
type Caller struct {
	UserID       string
	AccountID    string
	SessionToken string
}

// Authenticated reports whether the caller has a user profile.
func (c Caller) Authenticated() bool {
	return c.UserID != ""
}

// AccountService is the account and session adapter.
type AccountService interface {
	Create(ctx context.Context, name, email, password string) (*models.Account, error)
	CreateEmailSession(ctx context.Context, email, password string) (*models.Session, error)
	Authenticate(ctx context.Context, token string) (*models.Session, error)
	Get(ctx context.Context, token string) (*models.Account, error)
	DeleteSession(ctx context.Context, token string) error
}

func requireUser(c Caller) error {
	if !c.Authenticated() {
		return models.NewUnauthorizedError("Authentication required")
	}
	return nil
}
