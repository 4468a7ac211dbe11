package repository

import (
	"fmt"

	"snapgram/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// Store bundles the collections of one document store backend.
type Store struct {
	Users    UserRepository
	Posts    PostRepository
	Saves    SaveRepository
	Accounts Collection[models.Account]
	Sessions Collection[models.Session]
}

// NewMongoStore builds a Store over the collections of db.
func NewMongoStore(db *mongo.Database) *Store {
	const system = "mongodb"
	return &Store{
		Users:    NewUserRepository(Instrument[models.User](NewMongoCollection[models.User](db, UsersCollection), system, UsersCollection)),
		Posts:    NewPostRepository(Instrument[models.Post](NewMongoCollection[models.Post](db, PostsCollection), system, PostsCollection)),
		Saves:    NewSaveRepository(Instrument[models.Save](NewMongoCollection[models.Save](db, SavesCollection), system, SavesCollection)),
		Accounts: Instrument[models.Account](NewMongoCollection[models.Account](db, AccountsCollection), system, AccountsCollection),
		Sessions: Instrument[models.Session](NewMongoCollection[models.Session](db, SessionsCollection), system, SessionsCollection),
	}
}

// NewMemoryStore builds a Store held entirely in process memory. It
// enforces the same unique fields as the MongoDB indexes.
func NewMemoryStore() (*Store, error) {
	const system = "memory"

	users, err := NewMemoryCollection[models.User](UsersCollection, WithUniqueField("accountId"))
	if err != nil {
		return nil, err
	}
	posts, err := NewMemoryCollection[models.Post](PostsCollection, WithSearchField("caption"))
	if err != nil {
		return nil, fmt.Errorf("posts collection: %w", err)
	}
	saves, err := NewMemoryCollection[models.Save](SavesCollection)
	if err != nil {
		return nil, err
	}
	accounts, err := NewMemoryCollection[models.Account](AccountsCollection, WithUniqueField("email"))
	if err != nil {
		return nil, err
	}
	sessions, err := NewMemoryCollection[models.Session](SessionsCollection)
	if err != nil {
		return nil, err
	}

	return &Store{
		Users:    NewUserRepository(Instrument[models.User](users, system, UsersCollection)),
		Posts:    NewPostRepository(Instrument[models.Post](posts, system, PostsCollection)),
		Saves:    NewSaveRepository(Instrument[models.Save](saves, system, SavesCollection)),
		Accounts: Instrument[models.Account](accounts, system, AccountsCollection),
		Sessions: Instrument[models.Session](sessions, system, SessionsCollection),
	}, nil
}
