// internal/app/store/drafts/draftstore.go
package draftstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultTTL is how long an untouched draft survives. A TTL index on
// expires_at removes stale drafts.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned for unknown, expired or foreign drafts.
var ErrNotFound = errors.New("draft not found or expired")

// Store provides access to the label_drafts collection.
type Store struct {
	c   *mongo.Collection
	ttl time.Duration
}

// New creates a draft store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("label_drafts"), ttl: DefaultTTL}
}

// Start creates an empty draft for owner at step and returns it.
func (s *Store) Start(ctx context.Context, ownerID, step string) (*models.LabelDraft, error) {
	now := time.Now().UTC()
	d := models.LabelDraft{
		Token:     uuid.NewString(),
		Step:      step,
		OwnerID:   ownerID,
		ExpiresAt: now.Add(s.ttl),
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Get loads the draft with token belonging to owner.
func (s *Store) Get(ctx context.Context, token, ownerID string) (*models.LabelDraft, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrNotFound
	}
	var d models.LabelDraft
	err := s.c.FindOne(ctx, bson.M{
		"_id":        token,
		"owner_id":   ownerID,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Save replaces the draft and extends its expiry.
func (s *Store) Save(ctx context.Context, d *models.LabelDraft) error {
	now := time.Now().UTC()
	d.UpdatedAt = now
	d.ExpiresAt = now.Add(s.ttl)
	res, err := s.c.ReplaceOne(ctx,
		bson.M{"_id": d.Token, "owner_id": d.OwnerID},
		d,
		options.Replace())
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Discard deletes the draft.
func (s *Store) Discard(ctx context.Context, token, ownerID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": token, "owner_id": ownerID})
	return err
}

// PurgeExpired deletes drafts past their expiry. The TTL monitor does the
// same lazily; this makes the cleanup prompt.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
