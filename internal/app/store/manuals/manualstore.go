// internal/app/store/manuals/manualstore.go
package manualstore

import (
	"context"
	"time"

	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store provides access to the manuals collection.
type Store struct {
	storeutil.Collection[models.Manual]
}

// New creates a manual store.
func New(db *mongo.Database) *Store {
	return &Store{storeutil.NewCollection[models.Manual](
		db.Collection("manuals"),
		bson.D{{Key: "manual_id", Value: 1}},
	)}
}

// Input holds the editable fields of a manual. NotesHTML must already be
// sanitized by the caller.
type Input struct {
	ManualID            string
	Title               string
	Agency              string
	Version             string
	InstitutionCategory string
	Year                int
	NotesHTML           string
}

// Create inserts a new manual. A manual id already in use returns
// storeutil.ErrDuplicate.
func (s *Store) Create(ctx context.Context, in Input) (*models.Manual, error) {
	now := time.Now().UTC()
	m := models.Manual{
		ID:                  primitive.NewObjectID(),
		ManualID:            normalize.Code(in.ManualID),
		Title:               normalize.Name(in.Title),
		Agency:              in.Agency,
		Version:             normalize.Name(in.Version),
		InstitutionCategory: in.InstitutionCategory,
		Year:                in.Year,
		NotesHTML:           in.NotesHTML,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.Insert(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Update replaces the editable fields of the manual with id.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in Input) error {
	return s.Set(ctx, id, bson.M{
		"manual_id":            normalize.Code(in.ManualID),
		"title":                normalize.Name(in.Title),
		"agency":               in.Agency,
		"version":              normalize.Name(in.Version),
		"institution_category": in.InstitutionCategory,
		"year":                 in.Year,
		"notes_html":           in.NotesHTML,
		"updated_at":           time.Now().UTC(),
	})
}

// GetByManualID loads a manual by its public id (M001).
func (s *Store) GetByManualID(ctx context.Context, manualID string) (*models.Manual, error) {
	return s.FindOne(ctx, bson.M{"manual_id": normalize.Code(manualID)})
}
