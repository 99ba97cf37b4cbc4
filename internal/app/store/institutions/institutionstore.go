// internal/app/store/institutions/institutionstore.go
package institutionstore

import (
	"context"
	"time"

	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store provides access to the institutions collection.
type Store struct {
	storeutil.Collection[models.Institution]
}

// New creates an institution store.
func New(db *mongo.Database) *Store {
	return &Store{storeutil.NewCollection[models.Institution](
		db.Collection("institutions"),
		bson.D{{Key: "code", Value: 1}},
	)}
}

// Input holds the editable fields of an institution.
type Input struct {
	Code        string
	Name        string
	Category    string
	Affiliation string
	City        string
	Established int
}

func (in Input) normalized() Input {
	in.Code = normalize.Code(in.Code)
	in.Name = normalize.Name(in.Name)
	in.Affiliation = normalize.Name(in.Affiliation)
	in.City = normalize.Name(in.City)
	return in
}

// Create inserts a new institution. A code already in use returns
// storeutil.ErrDuplicate.
func (s *Store) Create(ctx context.Context, in Input) (*models.Institution, error) {
	in = in.normalized()
	now := time.Now().UTC()
	inst := models.Institution{
		ID:          primitive.NewObjectID(),
		Code:        in.Code,
		Name:        in.Name,
		NameCI:      text.Fold(in.Name),
		Category:    in.Category,
		Affiliation: in.Affiliation,
		City:        in.City,
		Established: in.Established,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Insert(ctx, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// Update replaces the editable fields of the institution with id.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in Input) error {
	in = in.normalized()
	return s.Set(ctx, id, bson.M{
		"code":        in.Code,
		"name":        in.Name,
		"name_ci":     text.Fold(in.Name),
		"category":    in.Category,
		"affiliation": in.Affiliation,
		"city":        in.City,
		"established": in.Established,
		"updated_at":  time.Now().UTC(),
	})
}

// GetByCode loads an institution by its code.
func (s *Store) GetByCode(ctx context.Context, code string) (*models.Institution, error) {
	return s.FindOne(ctx, bson.M{"code": normalize.Code(code)})
}

// CountByCategory returns the number of institutions per category.
func (s *Store) CountByCategory(ctx context.Context) (map[string]int, error) {
	all, err := s.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, inst := range all {
		out[inst.Category]++
	}
	return out, nil
}
