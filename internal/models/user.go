// Package models contains data structures for the application's domain models.
package models

import "time"

// User is the profile document bound to exactly one account.
type User struct {
	ID        string    `bson:"_id" json:"id"`
	AccountID string    `bson:"accountId" json:"account_id"`
	Name      string    `bson:"name" json:"name"`
	Username  string    `bson:"username" json:"username"`
	Email     string    `bson:"email" json:"email"`
	Bio       string    `bson:"bio" json:"bio"`
	ImageURL  string    `bson:"imageUrl" json:"image_url"`
	ImageID   string    `bson:"imageId" json:"image_id,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}
