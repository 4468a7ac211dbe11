package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollection is a Collection stored in a MongoDB collection.
// Documents use string ids in _id.
type MongoCollection[T any] struct {
	coll *mongo.Collection
}

// NewMongoCollection returns the named collection of db as a Collection.
func NewMongoCollection[T any](db *mongo.Database, name string) *MongoCollection[T] {
	return &MongoCollection[T]{coll: db.Collection(name)}
}

func (c *MongoCollection[T]) Create(ctx context.Context, doc *T) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return fmt.Errorf("insert into %s: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *MongoCollection[T]) Get(ctx context.Context, id string) (*T, error) {
	var doc T
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", c.coll.Name(), id, err)
	}
	return &doc, nil
}

func (c *MongoCollection[T]) List(ctx context.Context, queries ...Query) ([]*T, error) {
	spec := compile(queries)

	filter := bson.M{}
	for _, eq := range spec.equals {
		filter[eq.field] = eq.value
	}
	if spec.searchTerm != "" {
		// Relies on the text index created by database.EnsureIndexes.
		filter["$text"] = bson.M{"$search": spec.searchTerm}
	}

	dir := 1
	cmp := "$gt"
	if spec.desc {
		dir = -1
		cmp = "$lt"
	}

	if spec.cursor != "" {
		var anchor bson.M
		err := c.coll.FindOne(ctx, bson.M{"_id": spec.cursor},
			options.FindOne().SetProjection(bson.M{spec.orderField: 1})).Decode(&anchor)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("cursor %s: %w", spec.cursor, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve cursor %s: %w", spec.cursor, err)
		}
		v := anchor[spec.orderField]
		filter = bson.M{"$and": bson.A{
			filter,
			bson.M{"$or": bson.A{
				bson.M{spec.orderField: bson.M{cmp: v}},
				bson.M{spec.orderField: v, "_id": bson.M{cmp: spec.cursor}},
			}},
		}}
	}

	opts := options.Find().SetSort(bson.D{{Key: spec.orderField, Value: dir}, {Key: "_id", Value: dir}})
	if spec.limit > 0 {
		opts.SetLimit(int64(spec.limit))
	}

	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.coll.Name(), err)
	}
	docs := make([]*T, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.coll.Name(), err)
	}
	return docs, nil
}

func (c *MongoCollection[T]) Update(ctx context.Context, id string, fields Fields) (*T, error) {
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	set["updatedAt"] = time.Now().UTC()

	var doc T
	err := c.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return nil, fmt.Errorf("update %s/%s: %w", c.coll.Name(), id, err)
	}
	return &doc, nil
}

func (c *MongoCollection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.coll.Name(), id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
