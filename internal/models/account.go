package models

import "time"

// Account is an authentication identity. It is distinct from the User
// profile document, which references it by AccountID.
type Account struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updated_at"`
}

// Session is a sign-in of an account. Token is only populated when the
// session is created and is never persisted.
type Session struct {
	ID        string    `bson:"_id" json:"id"`
	AccountID string    `bson:"accountId" json:"account_id"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expires_at"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
	Token     string    `bson:"-" json:"token,omitempty"`
}
