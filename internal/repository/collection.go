// Package repository implements the document store: a generic Collection
// API backed by MongoDB or memory, and typed repositories for users,
// posts and saves built on top of it.
package repository

import (
	"context"
	"errors"

	"snapgram/internal/observability"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a create violates a unique field.
	ErrDuplicate = errors.New("duplicate document")
)

// Collection names.
const (
	UsersCollection    = "users"
	PostsCollection    = "posts"
	SavesCollection    = "saves"
	AccountsCollection = "accounts"
	SessionsCollection = "sessions"
)

// Fields is a partial update applied by Collection.Update. Keys are the
// stored (bson) field names.
type Fields map[string]any

// Collection is the document API over a single collection of T.
// Update sets the given fields plus updatedAt and returns the stored
// document after the update.
type Collection[T any] interface {
	Create(ctx context.Context, doc *T) error
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, queries ...Query) ([]*T, error)
	Update(ctx context.Context, id string, fields Fields) (*T, error)
	Delete(ctx context.Context, id string) error
}

// instrumented adds tracing, latency metrics and error logging to a Collection.
type instrumented[T any] struct {
	next   Collection[T]
	system string
	name   string
	log    *observability.RepoLogger
}

// Instrument wraps col so that every call is traced, timed and has its
// errors logged. system names the backend ("mongodb", "memory").
func Instrument[T any](col Collection[T], system, name string) Collection[T] {
	return &instrumented[T]{
		next:   col,
		system: system,
		name:   name,
		log:    observability.NewRepoLogger(name),
	}
}

func (c *instrumented[T]) observe(ctx context.Context, op string, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		observability.RecordErrorInContext(ctx, err)
		c.log.LogError(ctx, err, op)
	}
}

func (c *instrumented[T]) Create(ctx context.Context, doc *T) error {
	ctx, span := observability.TraceDocumentOperation(ctx, c.system, "create", c.name)
	defer span.End()
	defer observability.TrackDocumentOp("create", c.name)()

	err := c.next.Create(ctx, doc)
	c.observe(ctx, "create", err)
	return err
}

func (c *instrumented[T]) Get(ctx context.Context, id string) (*T, error) {
	ctx, span := observability.TraceDocumentOperation(ctx, c.system, "get", c.name)
	defer span.End()
	defer observability.TrackDocumentOp("get", c.name)()

	doc, err := c.next.Get(ctx, id)
	c.observe(ctx, "get", err)
	return doc, err
}

func (c *instrumented[T]) List(ctx context.Context, queries ...Query) ([]*T, error) {
	ctx, span := observability.TraceDocumentOperation(ctx, c.system, "list", c.name)
	defer span.End()
	defer observability.TrackDocumentOp("list", c.name)()

	docs, err := c.next.List(ctx, queries...)
	c.observe(ctx, "list", err)
	return docs, err
}

func (c *instrumented[T]) Update(ctx context.Context, id string, fields Fields) (*T, error) {
	ctx, span := observability.TraceDocumentOperation(ctx, c.system, "update", c.name)
	defer span.End()
	defer observability.TrackDocumentOp("update", c.name)()

	doc, err := c.next.Update(ctx, id, fields)
	c.observe(ctx, "update", err)
	return doc, err
}

func (c *instrumented[T]) Delete(ctx context.Context, id string) error {
	ctx, span := observability.TraceDocumentOperation(ctx, c.system, "delete", c.name)
	defer span.End()
	defer observability.TrackDocumentOp("delete", c.name)()

	err := c.next.Delete(ctx, id)
	c.observe(ctx, "delete", err)
	return err
}
