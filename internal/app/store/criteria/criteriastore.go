// internal/app/store/criteria/criteriastore.go
package criteriastore

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

// Store provides access to the criteria and metrics collections.
type Store struct {
	Criteria storeutil.Collection[models.Criterion]
	Metrics  storeutil.Collection[models.Metric]
}

// New creates a criteria store.
func New(db *mongo.Database) *Store {
	return &Store{
		Criteria: storeutil.NewCollection[models.Criterion](
			db.Collection("criteria"),
			bson.D{{Key: "manual_id", Value: 1}, {Key: "number", Value: 1}},
		),
		Metrics: storeutil.NewCollection[models.Metric](
			db.Collection("metrics"),
			bson.D{{Key: "number", Value: 1}},
		),
	}
}

// CriterionInput holds the editable fields of a criterion.
type CriterionInput struct {
	ManualID  primitive.ObjectID
	Number    string
	Title     string
	Weightage float64
}

// CreateCriterion inserts a criterion. Numbers are unique per manual.
func (s *Store) CreateCriterion(ctx context.Context, in CriterionInput) (*models.Criterion, error) {
	now := time.Now().UTC()
	c := models.Criterion{
		ID:        primitive.NewObjectID(),
		ManualID:  in.ManualID,
		Number:    normalize.QueryParam(in.Number),
		Title:     normalize.Name(in.Title),
		Weightage: in.Weightage,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Criteria.Insert(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCriterion replaces the editable fields of a criterion.
func (s *Store) UpdateCriterion(ctx context.Context, id primitive.ObjectID, in CriterionInput) error {
	return s.Criteria.Set(ctx, id, bson.M{
		"manual_id":  in.ManualID,
		"number":     normalize.QueryParam(in.Number),
		"title":      normalize.Name(in.Title),
		"weightage":  in.Weightage,
		"updated_at": time.Now().UTC(),
	})
}

// DeleteCriterion removes a criterion and its metrics.
func (s *Store) DeleteCriterion(ctx context.Context, id primitive.ObjectID) error {
	if err := s.Criteria.Delete(ctx, id); err != nil {
		return err
	}
	_, err := s.Metrics.Raw().DeleteMany(ctx, bson.M{"criterion_id": id})
	return err
}

// ListCriteria returns all criteria, or those of one manual when manualID
// is not zero.
func (s *Store) ListCriteria(ctx context.Context, manualID primitive.ObjectID) ([]models.Criterion, error) {
	if manualID.IsZero() {
		return s.Criteria.List(ctx, nil)
	}
	return s.Criteria.List(ctx, bson.M{"manual_id": manualID})
}

// MetricInput holds the editable fields of a metric.
type MetricInput struct {
	CriterionID primitive.ObjectID
	Number      string
	Description string
	Type        string
	MaxMarks    float64
}

// CreateMetric inserts a metric under a criterion.
func (s *Store) CreateMetric(ctx context.Context, in MetricInput) (*models.Metric, error) {
	now := time.Now().UTC()
	m := models.Metric{
		ID:          primitive.NewObjectID(),
		CriterionID: in.CriterionID,
		Number:      normalize.QueryParam(in.Number),
		Description: normalize.Name(in.Description),
		Type:        in.Type,
		MaxMarks:    in.MaxMarks,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Metrics.Insert(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMetric replaces the editable fields of a metric.
func (s *Store) UpdateMetric(ctx context.Context, id primitive.ObjectID, in MetricInput) error {
	return s.Metrics.Set(ctx, id, bson.M{
		"number":      normalize.QueryParam(in.Number),
		"description": normalize.Name(in.Description),
		"type":        in.Type,
		"max_marks":   in.MaxMarks,
		"updated_at":  time.Now().UTC(),
	})
}

// ListMetrics returns the metrics of one criterion.
func (s *Store) ListMetrics(ctx context.Context, criterionID primitive.ObjectID) ([]models.Metric, error) {
	return s.Metrics.List(ctx, bson.M{"criterion_id": criterionID})
}

// TotalMarks sums the max marks of a criterion's metrics.
func (s *Store) TotalMarks(ctx context.Context, criterionID primitive.ObjectID) (float64, error) {
	metrics, err := s.ListMetrics(ctx, criterionID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, m := range metrics {
		total += m.MaxMarks
	}
	return total, nil
}
