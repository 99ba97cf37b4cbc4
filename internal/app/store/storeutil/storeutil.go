// internal/app/store/storeutil/storeutil.go
package storeutil

import (
	"context"
	"errors"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sentinel errors shared by the entity stores.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("a record with this key already exists")
)

// Paginate returns *options.FindOptions with skip/limit given a 1-based page.
func Paginate(limit, page int64) *options.FindOptions {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	sk := (page - 1) * limit
	return options.Find().SetLimit(limit).SetSkip(sk)
}

// Collection is typed CRUD over one MongoDB collection whose documents
// decode into T. Entity stores embed it and add their own queries.
//
// List screens load whole collections and let tableview filter and sort in
// memory, so List has no paging.
type Collection[T any] struct {
	c    *mongo.Collection
	sort bson.D
}

// NewCollection wraps c. sort is the default order for List.
func NewCollection[T any](c *mongo.Collection, sort bson.D) Collection[T] {
	return Collection[T]{c: c, sort: sort}
}

// Raw returns the underlying collection for indexes and custom queries.
func (r Collection[T]) Raw() *mongo.Collection { return r.c }

// Insert stores doc. Unique-index violations map to ErrDuplicate.
func (r Collection[T]) Insert(ctx context.Context, doc *T) error {
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Get loads one document by id.
func (r Collection[T]) Get(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return r.FindOne(ctx, bson.M{"_id": id})
}

// FindOne loads the first document matching filter.
func (r Collection[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	var doc T
	if err := r.c.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// List returns every document matching filter in the default order.
// A nil filter matches everything.
func (r Collection[T]) List(ctx context.Context, filter bson.M) ([]T, error) {
	if filter == nil {
		filter = bson.M{}
	}
	opts := options.Find()
	if len(r.sort) > 0 {
		opts.SetSort(r.sort)
	}
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Set applies a $set update to the document with id.
func (r Collection[T]) Set(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the document with id.
func (r Collection[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of documents matching filter.
func (r Collection[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return r.c.CountDocuments(ctx, filter)
}

// ParseID converts a hex id from a URL or form. Malformed ids are reported
// as ErrNotFound so handlers answer 404 either way.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return id, nil
}
