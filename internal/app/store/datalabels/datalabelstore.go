// internal/app/store/datalabels/datalabelstore.go
package datalabelstore

import (
	"context"
	"time"

	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store provides access to the data_labels collection.
type Store struct {
	storeutil.Collection[models.DataLabel]
}

// New creates a data label store.
func New(db *mongo.Database) *Store {
	return &Store{storeutil.NewCollection[models.DataLabel](
		db.Collection("data_labels"),
		bson.D{{Key: "created_at", Value: -1}},
	)}
}

// CreateFromDraft stores the finished wizard draft as a data label.
func (s *Store) CreateFromDraft(ctx context.Context, d models.LabelDraft, createdBy string) (*models.DataLabel, error) {
	dl := models.DataLabel{
		ID:         primitive.NewObjectID(),
		ManualID:   d.ManualID,
		ManualCode: d.ManualCode,
		SOPTitle:   d.SOPTitle,
		SOPHTML:    d.SOPHTML,
		InputTypes: d.InputTypes,
		LabelTypes: d.LabelTypes,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Insert(ctx, &dl); err != nil {
		return nil, err
	}
	return &dl, nil
}

// CountByManual returns how many data labels reference manualID.
func (s *Store) CountByManual(ctx context.Context, manualID primitive.ObjectID) (int64, error) {
	return s.Count(ctx, bson.M{"manual_id": manualID})
}
